package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RegisterAndDefault(t *testing.T) {
	mgr := NewManager()
	storeA := NewSimilarityStore(10, nil, &seqIDGen{})
	storeB := NewSimilarityStore(10, nil, &seqIDGen{})

	require.NoError(t, mgr.Register("a", storeA, false))
	require.NoError(t, mgr.Register("b", storeB, true))

	def, err := mgr.Default()
	require.NoError(t, err)
	assert.Same(t, storeB, def)

	got, err := mgr.Store("a")
	require.NoError(t, err)
	assert.Same(t, storeA, got)

	_, err = mgr.Store("missing")
	assert.Error(t, err)
}

func TestManager_SearchAllFansOutAcrossStores(t *testing.T) {
	mgr := NewManager()
	storeA := NewSimilarityStore(10, nil, &seqIDGen{})
	storeB := NewSimilarityStore(10, nil, &seqIDGen{})
	ctx := context.Background()

	_, err := storeA.Add(ctx, "alpha content", nil)
	require.NoError(t, err)
	_, err = storeB.Add(ctx, "beta content", nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Register("a", storeA, true))
	require.NoError(t, mgr.Register("b", storeB, false))

	results, err := mgr.SearchAll(ctx, "content", 5)
	require.NoError(t, err)
	assert.Len(t, results["a"], 1)
	assert.Len(t, results["b"], 1)
}
