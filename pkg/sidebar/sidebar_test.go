package sidebar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/pkg/errs"
	"pairchat/pkg/ledger"
	"pairchat/pkg/models"
	"pairchat/pkg/presence"
	"pairchat/pkg/registry"
	"pairchat/pkg/store"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func addUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, store.SaveUser(models.User{ID: id, ExternalKey: "ext|" + id, Name: id}))
}

func TestListForUserRequiresViewer(t *testing.T) {
	openTestStore(t)

	_, err := ListForUser("")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestFeedOrderingByRecency(t *testing.T) {
	openTestStore(t)
	addUser(t, "viewer")
	addUser(t, "x")
	addUser(t, "y")
	addUser(t, "z")

	// talk to x first, then y; z never contacted
	cx, err := registry.GetOrCreate("viewer", "x")
	require.NoError(t, err)
	cy, err := registry.GetOrCreate("viewer", "y")
	require.NoError(t, err)

	_, err = ledger.Send(cx, "x", "from x", "")
	require.NoError(t, err)
	my, err := ledger.Send(cy, "y", "from y", "")
	require.NoError(t, err)

	entries, err := ListForUser("viewer")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// y spoke last, so y sorts first; z has no conversation and sorts last
	assert.Equal(t, "y", entries[0].User.ID)
	assert.Equal(t, cy, entries[0].ConversationID)
	require.NotNil(t, entries[0].LastMessage)
	assert.Equal(t, my.ID, entries[0].LastMessage.ID)
	assert.Equal(t, 1, entries[0].UnreadCount)

	assert.Equal(t, "x", entries[1].User.ID)
	assert.Equal(t, cx, entries[1].ConversationID)

	assert.Equal(t, "z", entries[2].User.ID)
	assert.Empty(t, entries[2].ConversationID)
	assert.Nil(t, entries[2].LastMessage)
	assert.Zero(t, entries[2].UnreadCount)
}

func TestFeedTieBreakOnUserID(t *testing.T) {
	openTestStore(t)
	addUser(t, "viewer")
	addUser(t, "b")
	addUser(t, "a")

	// neither has a conversation; order falls back to ascending user id
	entries, err := ListForUser("viewer")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].User.ID)
	assert.Equal(t, "b", entries[1].User.ID)
}

func TestListingNeverCreatesConversations(t *testing.T) {
	openTestStore(t)
	addUser(t, "viewer")
	addUser(t, "x")

	_, err := ListForUser("viewer")
	require.NoError(t, err)

	keys, err := store.ListKeys("convpair:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFeedCarriesPresence(t *testing.T) {
	openTestStore(t)
	addUser(t, "viewer")
	addUser(t, "x")

	require.NoError(t, presence.Report("x", true, ""))

	entries, err := ListForUser("viewer")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Presence)
	assert.True(t, entries[0].Presence.IsOnline)
}

func TestDeletedLastMessageKeepsSlot(t *testing.T) {
	openTestStore(t)
	addUser(t, "viewer")
	addUser(t, "x")

	cx, err := registry.GetOrCreate("viewer", "x")
	require.NoError(t, err)
	m, err := ledger.Send(cx, "x", "oops", "")
	require.NoError(t, err)
	require.NoError(t, ledger.Delete(m.ID, "x"))

	entries, err := ListForUser("viewer")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].LastMessage)
	assert.True(t, entries[0].LastMessage.IsDeleted)
	assert.Equal(t, models.DeletedBody, entries[0].LastMessage.Body)
}
