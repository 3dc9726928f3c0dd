package memory

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, s.dims), nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

type seqIDGen struct {
	counter atomic.Int64
}

func (g *seqIDGen) next(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, g.counter.Add(1))
}
func (g *seqIDGen) GenerateSessionID() string          { return g.next("ses") }
func (g *seqIDGen) GenerateTurnID() string             { return g.next("trn") }
func (g *seqIDGen) GenerateMessageID() string          { return g.next("msg") }
func (g *seqIDGen) GenerateToolInvocationID() string   { return g.next("inv") }
func (g *seqIDGen) GenerateMemoryItemID() string       { return g.next("mem") }
func (g *seqIDGen) GenerateRelationshipID() string     { return g.next("rel") }
func (g *seqIDGen) GenerateRelationshipTaskID() string { return g.next("tsk") }

func TestSimilarityStore_AddGetSubstringFallback(t *testing.T) {
	store := NewSimilarityStore(10, nil, &seqIDGen{})
	ctx := context.Background()

	itemID, err := store.Add(ctx, "the cat sat on the mat", nil)
	require.NoError(t, err)

	item, err := store.Get(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, 1, item.AccessCount)

	results, err := store.Search(ctx, "cat", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float64(0), results[0].Similarity)
}

func TestSimilarityStore_CosineSearchWithEmbedder(t *testing.T) {
	embedder := &stubEmbedder{dims: 2, vectors: map[string][]float32{
		"apple pie":  {1, 0},
		"banana split": {0, 1},
		"apple":      {1, 0},
	}}
	store := NewSimilarityStore(10, embedder, &seqIDGen{})
	ctx := context.Background()

	_, err := store.Add(ctx, "apple pie", nil)
	require.NoError(t, err)
	_, err = store.Add(ctx, "banana split", nil)
	require.NoError(t, err)

	results, err := store.Search(ctx, "apple", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "apple pie", results[0].Item.Payload)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.0001)
}

func TestSimilarityStore_EvictsLowestImportance(t *testing.T) {
	store := NewSimilarityStore(2, nil, &seqIDGen{})
	ctx := context.Background()

	id1, err := store.Add(ctx, "first", nil)
	require.NoError(t, err)
	_, err = store.Add(ctx, "second", nil)
	require.NoError(t, err)

	// Access id1 repeatedly so it has higher importance than a freshly
	// added, never-accessed third item.
	for i := 0; i < 5; i++ {
		_, err := store.Get(ctx, id1)
		require.NoError(t, err)
	}

	_, err = store.Add(ctx, "third", nil)
	require.NoError(t, err)

	_, err = store.Get(ctx, id1)
	assert.NoError(t, err, "frequently accessed item should survive eviction")
}

func TestSimilarityStore_PersistLoadRoundTrip(t *testing.T) {
	store := NewSimilarityStore(10, nil, &seqIDGen{})
	ctx := context.Background()

	id1, err := store.Add(ctx, "roundtrip me", map[string]string{"k": "v"})
	require.NoError(t, err)

	data, err := store.Persist(ctx)
	require.NoError(t, err)

	restored := NewSimilarityStore(10, nil, &seqIDGen{})
	require.NoError(t, restored.Load(ctx, data))

	item, err := restored.Get(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip me", item.Payload)
	assert.Equal(t, "v", item.Tags["k"])
}
