package directory

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

func TestSyncCreatesOnce(t *testing.T) {
	openTestStore(t)

	id1, err := Sync("clerk|abc", "Ada", "ada@example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := Sync("clerk|abc", "Ada L.", "ada@example.com", "avatar.png")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	u, err := store.GetUser(id1)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", u.Name)
	assert.Equal(t, "avatar.png", u.Avatar)
	assert.Equal(t, "clerk|abc", u.ExternalKey)
}

func TestSyncRequiresExternalKey(t *testing.T) {
	openTestStore(t)

	_, err := Sync("", "Ada", "", "")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestResolveUnknown(t *testing.T) {
	openTestStore(t)

	_, err := Resolve("clerk|ghost")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConcurrentFirstSyncMintsOneUser(t *testing.T) {
	openTestStore(t)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := Sync("clerk|race", "Racer", "", "")
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	users, err := store.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
