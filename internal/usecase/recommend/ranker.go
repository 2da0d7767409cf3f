package recommend

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/history"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
)

// similarityScale brings cosine similarity into the same magnitude range
// as the integer cluster weights.
const similarityScale = 100

// freshTopN caps the single-reference ranking variant.
const freshTopN = 5

// Ranked is one scored candidate in the recommendation output.
type Ranked struct {
	PlaceID            string  `json:"place_id"`
	Cluster            int     `json:"cluster"`
	PositiveSimilarity float64 `json:"positive_similarity"`
	NegativeSimilarity float64 `json:"negative_similarity"`
	FinalScore         float64 `json:"final_score"`
}

// Ranker orders candidates by cluster weight plus content similarity to
// the user's liked/disliked text history.
type Ranker struct {
	embed  domain.Embedder
	logger *zap.Logger
}

// NewRanker creates a similarity ranker.
func NewRanker(embed domain.Embedder, logger *zap.Logger) *Ranker {
	return &Ranker{embed: embed, logger: logger}
}

// Rank scores every not-yet-judged row and returns them sorted by final
// score descending. The sort is stable: ties keep the candidates' original
// table order. Embedding failures degrade the affected text to the zero
// vector instead of aborting.
func (r *Ranker) Rank(
	ctx context.Context, clustered *cluster.Table, weights Weights, hist history.History,
) []Ranked {
	likedRef := r.embedText(ctx, referenceText(clustered, hist.Liked))
	dislikedRef := r.embedText(ctx, referenceText(clustered, hist.Disliked))

	candidates := make([]int, 0, len(clustered.Features.Rows))
	for i, row := range clustered.Features.Rows {
		if !hist.Judged(row.PlaceID) {
			candidates = append(candidates, i)
		}
	}

	vectors := r.embedCandidates(ctx, clustered, candidates)

	ranked := make([]Ranked, 0, len(candidates))
	for n, i := range candidates {
		row := &clustered.Features.Rows[i]
		label := clustered.Labels[i]

		pos := cosine(vectors[n], likedRef)
		neg := cosine(vectors[n], dislikedRef)
		similarity := similarityScale*pos - similarityScale*neg

		ranked = append(ranked, Ranked{
			PlaceID:            row.PlaceID,
			Cluster:            label,
			PositiveSimilarity: pos,
			NegativeSimilarity: neg,
			FinalScore:         float64(weights[label]) + similarity,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// RankFresh is the single-reference variant used right after a handful of
// likes with no dislikes yet: candidates are restricted to clusters that
// contain at least one liked row, scored only against the liked reference,
// and truncated to the top 5.
func (r *Ranker) RankFresh(
	ctx context.Context, clustered *cluster.Table, liked map[string]bool,
) []Ranked {
	likedClusters := make(map[int]bool)
	for i, row := range clustered.Features.Rows {
		if liked[row.PlaceID] {
			likedClusters[clustered.Labels[i]] = true
		}
	}

	likedRef := r.embedText(ctx, referenceText(clustered, liked))

	candidates := make([]int, 0, len(clustered.Features.Rows))
	for i, row := range clustered.Features.Rows {
		if liked[row.PlaceID] || !likedClusters[clustered.Labels[i]] {
			continue
		}
		candidates = append(candidates, i)
	}

	vectors := r.embedCandidates(ctx, clustered, candidates)

	ranked := make([]Ranked, 0, len(candidates))
	for n, i := range candidates {
		row := &clustered.Features.Rows[i]
		pos := cosine(vectors[n], likedRef)
		ranked = append(ranked, Ranked{
			PlaceID:            row.PlaceID,
			Cluster:            clustered.Labels[i],
			PositiveSimilarity: pos,
			FinalScore:         similarityScale * pos,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	if len(ranked) > freshTopN {
		ranked = ranked[:freshTopN]
	}
	return ranked
}

// embedCandidates vectorizes candidate texts, batching when the embedder
// supports it. A failed batch call falls back to per-item embedding so a
// single malformed text degrades alone.
func (r *Ranker) embedCandidates(
	ctx context.Context, clustered *cluster.Table, candidates []int,
) [][]float32 {
	texts := make([]string, len(candidates))
	allEmpty := true
	for n, i := range candidates {
		texts[n] = clustered.Features.Rows[i].Text
		if texts[n] != "" {
			allEmpty = false
		}
	}

	vectors := make([][]float32, len(candidates))
	if allEmpty {
		return vectors
	}

	if be, ok := r.embed.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err == nil && len(res.Embeddings) == len(candidates) {
			for n, text := range texts {
				if text != "" {
					vectors[n] = res.Embeddings[n]
				}
			}
			return vectors
		}
		if err != nil {
			r.logger.Warn("batch embedding failed, falling back to per-item", zap.Error(err))
		}
	}

	for n, text := range texts {
		vectors[n] = r.embedText(ctx, text)
	}
	return vectors
}

// embedText returns the embedding for text, or nil (the zero vector) when
// the text is empty or the provider fails. The degraded case is logged,
// never surfaced.
func (r *Ranker) embedText(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}
	res, err := r.embed.Embed(ctx, text)
	if err != nil {
		r.logger.Warn("embedding degraded to zero vector", zap.Error(err))
		return nil
	}
	return res.Embedding
}

// referenceText concatenates the aggregated text of every row whose id is
// in the set, in table order. Empty set or textless rows yield "".
func referenceText(clustered *cluster.Table, ids map[string]bool) string {
	var out string
	for _, row := range clustered.Features.Rows {
		if !ids[row.PlaceID] || row.Text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += row.Text
	}
	return out
}

// cosine is the normalized dot product of two vectors. Either vector being
// zero (or nil) yields 0 by definition.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
