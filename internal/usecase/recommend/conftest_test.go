package recommend

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/feature"
	"github.com/tablematch/tablematch/internal/usecase/cluster"
)

// mockEmbedder returns canned vectors per text. Unknown non-empty texts
// get defaultVec; texts in failTexts return an error.
type mockEmbedder struct {
	vectors    map[string][]float32
	defaultVec []float32
	failTexts  map[string]bool
	calls      int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.failTexts[text] {
		return domain.EmbeddingResult{}, errors.New("provider unavailable")
	}
	if v, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: m.defaultVec}, nil
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:    make(map[string][]float32),
		defaultVec: []float32{0, 0, 1},
		failTexts:  make(map[string]bool),
	}
}

func newTestRanker(t *testing.T, embed domain.Embedder) *Ranker {
	t.Helper()
	return NewRanker(embed, zap.NewNop())
}

// clusteredTable builds a clustered table by hand: ids, parallel labels,
// and per-row text.
func clusteredTable(t *testing.T, ids []string, labels []int, texts []string) cluster.Table {
	t.Helper()
	if len(ids) != len(labels) || len(ids) != len(texts) {
		t.Fatal("ids, labels, texts must be parallel")
	}
	rows := make([]feature.Row, len(ids))
	k := 0
	for i, id := range ids {
		rows[i] = feature.Row{
			PlaceID:     id,
			Numeric:     []float64{2, 4, 100, 38.8, -77.3},
			Categorical: []uint8{1, 0},
			Text:        texts[i],
		}
		if labels[i] >= k {
			k = labels[i] + 1
		}
	}
	return cluster.Table{
		Features: feature.Table{Rows: rows, TagColumns: []string{"restaurant"}},
		Labels:   labels,
		K:        k,
	}
}
