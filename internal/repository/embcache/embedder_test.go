package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tablematch/tablematch/internal/db"
	"github.com/tablematch/tablematch/internal/domain"
)

type mockInner struct {
	calls  int
	vec    []float32
	tokens int
	err    error
}

func (m *mockInner) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: m.tokens}, nil
}

type mockKV struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestMissThenHit(t *testing.T) {
	inner := &mockInner{vec: []float32{0.1, 0.2, 0.3}, tokens: 7}
	kv := newMockKV()
	cached := New(inner, kv, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	first, err := cached.Embed(ctx, "pho broth")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss should report provider tokens, got %d", first.TotalTokens)
	}
	if inner.calls != 1 {
		t.Fatalf("expected one provider call, got %d", inner.calls)
	}

	second, err := cached.Embed(ctx, "pho broth")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("hit should not call provider, calls=%d", inner.calls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit should report zero tokens, got %d", second.TotalTokens)
	}
	if len(second.Embedding) != 3 || second.Embedding[1] != 0.2 {
		t.Errorf("hit returned wrong vector: %v", second.Embedding)
	}
}

func TestEntriesGetTTL(t *testing.T) {
	inner := &mockInner{vec: []float32{1}}
	kv := newMockKV()
	cached := New(inner, kv, 24*time.Hour, nil, zap.NewNop())

	if _, err := cached.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	for _, ttl := range kv.ttls {
		if ttl != 24*time.Hour {
			t.Errorf("expected TTL 24h, got %v", ttl)
		}
	}
	if len(kv.ttls) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(kv.ttls))
	}
}

func TestDistinctTextsDistinctKeys(t *testing.T) {
	inner := &mockInner{vec: []float32{1}}
	kv := newMockKV()
	cached := New(inner, kv, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "thai"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if _, err := cached.Embed(ctx, "sushi"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(kv.data) != 2 {
		t.Errorf("expected two cache entries, got %d", len(kv.data))
	}
	if inner.calls != 2 {
		t.Errorf("expected two provider calls, got %d", inner.calls)
	}
}

func TestCorruptEntryFallsThrough(t *testing.T) {
	inner := &mockInner{vec: []float32{1, 2}}
	kv := newMockKV()
	cached := New(inner, kv, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	kv.data[cacheKey("text")] = []byte{1, 2, 3} // not a multiple of 4

	result, err := cached.Embed(ctx, "text")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("corrupt entry should fall through to provider, calls=%d", inner.calls)
	}
	if len(result.Embedding) != 2 {
		t.Errorf("expected provider vector, got %v", result.Embedding)
	}
}

func TestProviderErrorPropagates(t *testing.T) {
	inner := &mockInner{err: errors.New("quota")}
	cached := New(inner, newMockKV(), time.Hour, nil, zap.NewNop())

	if _, err := cached.Embed(context.Background(), "text"); err == nil {
		t.Error("expected provider error to propagate")
	}
}

func TestStoreFailuresAreNonFatal(t *testing.T) {
	inner := &mockInner{vec: []float32{1}}
	kv := newMockKV()
	kv.getErr = errors.New("conn reset")
	kv.setErr = errors.New("conn reset")
	cached := New(inner, kv, time.Hour, nil, zap.NewNop())

	result, err := cached.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("store failure must not fail Embed: %v", err)
	}
	if len(result.Embedding) != 1 {
		t.Errorf("expected provider vector despite store failure, got %v", result.Embedding)
	}
}

type mockBatchInner struct {
	mockInner
	batchCalls int
	batchTexts []string
}

func (m *mockBatchInner) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = m.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs, TotalTokens: m.tokens * len(texts)}, nil
}

func TestBatchEmbedsOnlyMisses(t *testing.T) {
	inner := &mockBatchInner{mockInner: mockInner{vec: []float32{1, 2}, tokens: 3}}
	kv := newMockKV()
	cached := New(inner, kv, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "ramen"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	res, err := cached.BatchEmbed(ctx, []string{"ramen", "tapas", "pho"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(res.Embeddings))
	}
	for i, vec := range res.Embeddings {
		if len(vec) != 2 {
			t.Errorf("vector %d missing: %v", i, vec)
		}
	}
	if inner.batchCalls != 1 || len(inner.batchTexts) != 2 {
		t.Errorf("expected one inner batch over the 2 misses, got %d calls over %v",
			inner.batchCalls, inner.batchTexts)
	}
	if res.TotalTokens != 6 {
		t.Errorf("tokens should cover misses only, got %d", res.TotalTokens)
	}
	if len(kv.data) != 3 {
		t.Errorf("expected all 3 texts cached afterwards, got %d entries", len(kv.data))
	}
}

func TestBatchAllHitsSkipsProvider(t *testing.T) {
	inner := &mockBatchInner{mockInner: mockInner{vec: []float32{1}}}
	kv := newMockKV()
	cached := New(inner, kv, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	texts := []string{"thai", "sushi"}
	for _, text := range texts {
		if _, err := cached.Embed(ctx, text); err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
	}
	inner.calls, inner.batchCalls = 0, 0

	res, err := cached.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if inner.calls != 0 || inner.batchCalls != 0 {
		t.Errorf("all-hit batch must not call the provider: %d/%d", inner.calls, inner.batchCalls)
	}
	if res.TotalTokens != 0 {
		t.Errorf("all-hit batch should report zero tokens, got %d", res.TotalTokens)
	}
}

func TestBatchFallsBackWithoutBatchInner(t *testing.T) {
	inner := &mockInner{vec: []float32{1}}
	cached := New(inner, newMockKV(), time.Hour, nil, zap.NewNop())

	res, err := cached.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected per-item fallback, got %d calls", inner.calls)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(res.Embeddings))
	}
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("index %d: got %v, want %v", i, out[i], in[i])
		}
	}
}
