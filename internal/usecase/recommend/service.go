// Package recommend composes the recommendation pipeline:
// encode -> cluster -> score clusters -> rank by similarity.
package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/history"
	"github.com/tablematch/tablematch/internal/domain/place"
	"github.com/tablematch/tablematch/internal/metrics"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
	"github.com/tablematch/tablematch/internal/usecase/encode"
)

// Service is the recommendation orchestrator. It is a pure per-request
// computation: no stage mutates its input, so independent requests may run
// concurrently against the same Service.
type Service struct {
	ranker        *Ranker
	clusterSeed   int64
	maxIterations int
	logger        *zap.Logger
}

// New creates the orchestrator around an embedding provider.
func New(embed domain.Embedder, logger *zap.Logger) *Service {
	return &Service{
		ranker: NewRanker(embed, logger),
		logger: logger,
	}
}

// WithClustering overrides clustering knobs. seed 0 keeps time-based
// seeding; maxIterations 0 keeps the package default.
func (s *Service) WithClustering(seed int64, maxIterations int) *Service {
	s.clusterSeed = seed
	s.maxIterations = maxIterations
	return s
}

// Recommend runs the full pipeline over a raw candidate batch and returns
// the ranked list plus the clustered table so the caller can cache it.
// Encoder and cluster failures abort the pipeline and surface verbatim.
func (s *Service) Recommend(
	ctx context.Context, records []place.Record, hist history.History, k int,
) ([]Ranked, cluster.Table, error) {
	clustered, err := s.Cluster(records, k)
	if err != nil {
		return nil, cluster.Table{}, err
	}

	ranked := s.RecommendClustered(ctx, &clustered, hist)
	return ranked, clustered, nil
}

// Cluster encodes a raw candidate batch and partitions it into k clusters.
// Callers cache the result and feed it back through RecommendClustered or
// RecommendFresh until the batch changes.
func (s *Service) Cluster(records []place.Record, k int) (cluster.Table, error) {
	encodeStart := time.Now()
	table, err := encode.Batch(records)
	if err != nil {
		return cluster.Table{}, err
	}
	metrics.PipelineStageDuration.WithLabelValues("encode").Observe(time.Since(encodeStart).Seconds())

	clusterStart := time.Now()
	clustered, err := cluster.Assign(table, cluster.Config{
		K:             k,
		Seed:          s.clusterSeed,
		MaxIterations: s.maxIterations,
	})
	if err != nil {
		return cluster.Table{}, err
	}
	metrics.PipelineStageDuration.WithLabelValues("cluster").Observe(time.Since(clusterStart).Seconds())

	s.logger.Debug("candidates clustered",
		zap.Int("rows", len(clustered.Features.Rows)),
		zap.Int("k", clustered.K),
		zap.Int("tag_columns", len(clustered.Features.TagColumns)),
	)
	return clustered, nil
}

// RecommendClustered ranks a pre-clustered table, skipping the encode and
// cluster stages. Used when the caller reuses a cached clustered table.
func (s *Service) RecommendClustered(
	ctx context.Context, clustered *cluster.Table, hist history.History,
) []Ranked {
	weights := ScoreClusters(clustered, hist)

	rankStart := time.Now()
	ranked := s.ranker.Rank(ctx, clustered, weights, hist)
	metrics.PipelineStageDuration.WithLabelValues("rank").Observe(time.Since(rankStart).Seconds())

	return ranked
}

// RecommendFresh ranks a pre-clustered table in the single-reference mode:
// only a liked set, candidates restricted to liked clusters, top 5.
func (s *Service) RecommendFresh(
	ctx context.Context, clustered *cluster.Table, likedIDs []string,
) []Ranked {
	liked := make(map[string]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}

	rankStart := time.Now()
	ranked := s.ranker.RankFresh(ctx, clustered, liked)
	metrics.PipelineStageDuration.WithLabelValues("rank_fresh").Observe(time.Since(rankStart).Seconds())

	return ranked
}
