// Package cluster partitions an encoded batch into affinity clusters using
// k-prototypes: squared Euclidean distance over numeric columns plus a
// weighted mismatch count over categorical columns.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/feature"
)

// DefaultK is the default cluster count.
const DefaultK = 4

const defaultMaxIterations = 20

// Config controls a clustering run.
type Config struct {
	// K is the number of clusters. Defaults to DefaultK.
	K int
	// Gamma weighs categorical mismatches against numeric distance.
	// Zero selects Huang's heuristic: half the mean numeric column stddev.
	Gamma float64
	// MaxIterations bounds the assign/update loop. Defaults to 20.
	MaxIterations int
	// Seed seeds prototype initialization. Zero means time-seeded; cluster
	// labels are then not reproducible across runs, only membership
	// consistency within one run is guaranteed.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.K <= 0 {
		c.K = DefaultK
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Table is a clustered batch: the encoded features plus one label per row.
type Table struct {
	Features feature.Table `json:"features"`
	Labels   []int         `json:"labels"`
	K        int           `json:"k"`
}

// LabelOf returns the cluster label for a place id.
func (t *Table) LabelOf(placeID string) (int, bool) {
	for i := range t.Features.Rows {
		if t.Features.Rows[i].PlaceID == placeID {
			return t.Labels[i], true
		}
	}
	return 0, false
}

// prototype is one cluster center: numeric means and categorical modes.
type prototype struct {
	numeric     []float64
	categorical []uint8
}

// Assign clusters the table's rows into cfg.K clusters.
//
// Guarantees: every row receives exactly one label in [0, K); rows with
// identical feature vectors receive the same label within a run. Label
// values themselves are not stable across runs.
func Assign(features feature.Table, cfg Config) (Table, error) {
	cfg = cfg.withDefaults()

	n := len(features.Rows)
	distinct := distinctRows(features.Rows)
	if len(distinct) < cfg.K {
		return Table{}, fmt.Errorf(
			"%d distinct rows for k=%d: %w", len(distinct), cfg.K, domain.ErrInsufficientData)
	}

	gamma := cfg.Gamma
	if gamma <= 0 {
		gamma = huangGamma(features.Rows)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	protos := initPrototypes(features.Rows, distinct, cfg.K, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		changed := assignAll(features.Rows, protos, gamma, labels)
		updatePrototypes(features.Rows, labels, protos)
		refillEmptyClusters(features.Rows, protos, gamma, labels)
		if !changed {
			break
		}
	}

	return Table{Features: features, Labels: labels, K: cfg.K}, nil
}

// assignAll assigns each row to its nearest prototype. Ties break toward
// the lowest cluster index, so identical rows always agree.
func assignAll(rows []feature.Row, protos []prototype, gamma float64, labels []int) bool {
	changed := false
	for i := range rows {
		best := 0
		bestCost := math.Inf(1)
		for c := range protos {
			cost := distance(&rows[i], &protos[c], gamma)
			if cost < bestCost {
				bestCost = cost
				best = c
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// distance is the k-prototypes cost: squared Euclidean over numerics plus
// gamma times the categorical mismatch count.
func distance(row *feature.Row, p *prototype, gamma float64) float64 {
	var num float64
	for j := range row.Numeric {
		d := row.Numeric[j] - p.numeric[j]
		num += d * d
	}
	var mismatch float64
	for j := range row.Categorical {
		if row.Categorical[j] != p.categorical[j] {
			mismatch++
		}
	}
	return num + gamma*mismatch
}

// updatePrototypes recomputes numeric means and categorical modes per cluster.
func updatePrototypes(rows []feature.Row, labels []int, protos []prototype) {
	if len(rows) == 0 {
		return
	}
	numWidth := len(rows[0].Numeric)
	catWidth := len(rows[0].Categorical)

	counts := make([]int, len(protos))
	sums := make([][]float64, len(protos))
	ones := make([][]int, len(protos))
	for c := range protos {
		sums[c] = make([]float64, numWidth)
		ones[c] = make([]int, catWidth)
	}

	for i := range rows {
		c := labels[i]
		counts[c]++
		for j, v := range rows[i].Numeric {
			sums[c][j] += v
		}
		for j, v := range rows[i].Categorical {
			ones[c][j] += int(v)
		}
	}

	for c := range protos {
		if counts[c] == 0 {
			continue
		}
		for j := range protos[c].numeric {
			protos[c].numeric[j] = sums[c][j] / float64(counts[c])
		}
		for j := range protos[c].categorical {
			// Mode of a binary column; ties resolve to 0.
			if 2*ones[c][j] > counts[c] {
				protos[c].categorical[j] = 1
			} else {
				protos[c].categorical[j] = 0
			}
		}
	}
}

// refillEmptyClusters reseeds any empty cluster with the row currently
// farthest from its own prototype, so every label in [0, K) stays in use.
func refillEmptyClusters(rows []feature.Row, protos []prototype, gamma float64, labels []int) {
	counts := make([]int, len(protos))
	for _, c := range labels {
		counts[c]++
	}

	for c := range protos {
		if counts[c] > 0 {
			continue
		}
		farthest := -1
		farthestCost := -1.0
		for i := range rows {
			if counts[labels[i]] <= 1 {
				continue
			}
			cost := distance(&rows[i], &protos[labels[i]], gamma)
			if cost > farthestCost {
				farthestCost = cost
				farthest = i
			}
		}
		if farthest < 0 {
			continue
		}
		counts[labels[farthest]]--
		labels[farthest] = c
		counts[c] = 1
		protos[c] = prototypeFromRow(&rows[farthest])
	}
}

// initPrototypes picks K distinct rows as initial centers.
func initPrototypes(rows []feature.Row, distinct []int, k int, rng *rand.Rand) []prototype {
	picked := make([]int, len(distinct))
	copy(picked, distinct)
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	protos := make([]prototype, k)
	for c := 0; c < k; c++ {
		protos[c] = prototypeFromRow(&rows[picked[c]])
	}
	return protos
}

func prototypeFromRow(row *feature.Row) prototype {
	p := prototype{
		numeric:     make([]float64, len(row.Numeric)),
		categorical: make([]uint8, len(row.Categorical)),
	}
	copy(p.numeric, row.Numeric)
	copy(p.categorical, row.Categorical)
	return p
}

// distinctRows returns the index of the first occurrence of each distinct
// feature vector.
func distinctRows(rows []feature.Row) []int {
	var distinct []int
	for i := range rows {
		dup := false
		for _, j := range distinct {
			if feature.SameVector(&rows[i], &rows[j]) {
				dup = true
				break
			}
		}
		if !dup {
			distinct = append(distinct, i)
		}
	}
	return distinct
}

// huangGamma is the default categorical weight: half the mean standard
// deviation of the numeric columns (Huang 1997). Falls back to 1 when the
// numeric columns carry no variance at all.
func huangGamma(rows []feature.Row) float64 {
	if len(rows) == 0 {
		return 1
	}
	width := len(rows[0].Numeric)
	n := float64(len(rows))

	var total float64
	for j := 0; j < width; j++ {
		var sum, sumSq float64
		for i := range rows {
			v := rows[i].Numeric[j]
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance > 0 {
			total += math.Sqrt(variance)
		}
	}

	gamma := 0.5 * total / float64(width)
	if gamma <= 0 {
		return 1
	}
	return gamma
}
