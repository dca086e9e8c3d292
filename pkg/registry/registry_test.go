package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/pkg/errs"
	"pairchat/pkg/store"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, "a|b", PairKey("a", "b"))
	assert.Equal(t, "a|b", PairKey("b", "a"))
}

func TestGetOrCreateSymmetric(t *testing.T) {
	openTestStore(t)

	id1, err := GetOrCreate("alice", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := GetOrCreate("bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	c, err := store.GetConversation(id1)
	require.NoError(t, err)
	assert.True(t, c.HasParticipant("alice"))
	assert.True(t, c.HasParticipant("bob"))
	assert.Equal(t, "bob", c.Other("alice"))
}

func TestGetOrCreateRejectsBadPairs(t *testing.T) {
	openTestStore(t)

	_, err := GetOrCreate("", "bob")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = GetOrCreate("alice", "")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = GetOrCreate("alice", "alice")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestLookupDoesNotCreate(t *testing.T) {
	openTestStore(t)

	_, err := Lookup("alice", "bob")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	keys, err := store.ListKeys("convpair:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	id, err := GetOrCreate("alice", "bob")
	require.NoError(t, err)

	got, err := Lookup("bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestConcurrentFirstContactYieldsOneConversation(t *testing.T) {
	openTestStore(t)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// alternate argument order to hit both directions
			var id string
			var err error
			if i%2 == 0 {
				id, err = GetOrCreate("alice", "bob")
			} else {
				id, err = GetOrCreate("bob", "alice")
			}
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	keys, err := store.ListKeys("convpair:")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
