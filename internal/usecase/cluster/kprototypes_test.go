package cluster

import (
	"errors"
	"testing"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/feature"
)

func row(id string, numeric []float64, categorical []uint8) feature.Row {
	return feature.Row{PlaceID: id, Numeric: numeric, Categorical: categorical}
}

// twoGroupTable builds rows in two well-separated groups.
func twoGroupTable(perGroup int) feature.Table {
	var rows []feature.Row
	for i := 0; i < perGroup; i++ {
		rows = append(rows, row(
			"cheap-"+string(rune('a'+i)),
			[]float64{1, 3.5, 10 + float64(i), 38.8, -77.3},
			[]uint8{1, 0, 0},
		))
	}
	for i := 0; i < perGroup; i++ {
		rows = append(rows, row(
			"fancy-"+string(rune('a'+i)),
			[]float64{4, 4.8, 900 + float64(i), 40.7, -74.0},
			[]uint8{0, 1, 1},
		))
	}
	return feature.Table{Rows: rows}
}

func TestAssign_EveryRowGetsOneLabelInRange(t *testing.T) {
	table := twoGroupTable(4)

	clustered, err := Assign(table, Config{K: 3, Seed: 7})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if len(clustered.Labels) != len(table.Rows) {
		t.Fatalf("labels = %d, rows = %d", len(clustered.Labels), len(table.Rows))
	}
	for i, label := range clustered.Labels {
		if label < 0 || label >= 3 {
			t.Errorf("row %d label %d out of [0,3)", i, label)
		}
	}
}

func TestAssign_IdenticalRowsShareCluster(t *testing.T) {
	table := twoGroupTable(3)
	// Duplicate an existing feature vector under a new id.
	dup := table.Rows[0]
	dup.PlaceID = "cheap-dup"
	table.Rows = append(table.Rows, dup)

	clustered, err := Assign(table, Config{K: 2, Seed: 11})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	first, _ := clustered.LabelOf("cheap-a")
	second, _ := clustered.LabelOf("cheap-dup")
	if first != second {
		t.Errorf("identical rows got labels %d and %d", first, second)
	}
}

func TestAssign_SeparatedGroupsFormPartition(t *testing.T) {
	table := twoGroupTable(5)

	clustered, err := Assign(table, Config{K: 2, Seed: 3})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Compare membership, not label values: all cheap rows together,
	// all fancy rows together, and apart from each other.
	cheapLabel := clustered.Labels[0]
	for i := 0; i < 5; i++ {
		if clustered.Labels[i] != cheapLabel {
			t.Errorf("cheap row %d label %d, want %d", i, clustered.Labels[i], cheapLabel)
		}
	}
	fancyLabel := clustered.Labels[5]
	if fancyLabel == cheapLabel {
		t.Fatal("cheap and fancy groups collapsed into one cluster")
	}
	for i := 5; i < 10; i++ {
		if clustered.Labels[i] != fancyLabel {
			t.Errorf("fancy row %d label %d, want %d", i, clustered.Labels[i], fancyLabel)
		}
	}
}

func TestAssign_SameSeedSamePartition(t *testing.T) {
	table := twoGroupTable(4)

	first, err := Assign(table, Config{K: 2, Seed: 42})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	second, err := Assign(table, Config{K: 2, Seed: 42})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	for i := range first.Labels {
		for j := range first.Labels {
			sameFirst := first.Labels[i] == first.Labels[j]
			sameSecond := second.Labels[i] == second.Labels[j]
			if sameFirst != sameSecond {
				t.Fatalf("partition differs between runs at rows %d,%d", i, j)
			}
		}
	}
}

func TestAssign_InsufficientDistinctRows(t *testing.T) {
	same := row("a", []float64{1, 3, 10, 38.8, -77.3}, []uint8{1})
	table := feature.Table{Rows: []feature.Row{same, same, same}}
	table.Rows[1].PlaceID = "b"
	table.Rows[2].PlaceID = "c"

	_, err := Assign(table, Config{K: 2, Seed: 1})
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestAssign_DefaultsApplied(t *testing.T) {
	table := twoGroupTable(3)

	clustered, err := Assign(table, Config{Seed: 5})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if clustered.K != DefaultK {
		t.Errorf("k = %d, want %d", clustered.K, DefaultK)
	}
}

func TestHuangGamma_ZeroVarianceFallsBack(t *testing.T) {
	rows := []feature.Row{
		row("a", []float64{1, 1, 1, 1, 1}, []uint8{0}),
		row("b", []float64{1, 1, 1, 1, 1}, []uint8{1}),
	}
	if g := huangGamma(rows); g != 1 {
		t.Errorf("gamma = %v, want fallback 1", g)
	}
}
