package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/pkg/errs"
	"pairchat/pkg/models"
	"pairchat/pkg/store"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func TestSendAssignsIDAndTimestamp(t *testing.T) {
	openTestStore(t)

	m, err := Send("c1", "alice", "hello", "")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.NotZero(t, m.TS)
	assert.Equal(t, "c1", m.Conversation)
	assert.False(t, m.IsRead)
	assert.False(t, m.IsDeleted)

	// empty and whitespace-only bodies are stored as-is
	m2, err := Send("c1", "alice", "   ", "")
	require.NoError(t, err)
	assert.Equal(t, "   ", m2.Body)

	msgs, err := List("c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m.ID, msgs[0].ID)
}

func TestSendRequiresSenderAndConversation(t *testing.T) {
	openTestStore(t)

	_, err := Send("c1", "", "hi", "")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = Send("", "alice", "hi", "")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestReplyTargetValidation(t *testing.T) {
	openTestStore(t)

	_, err := Send("c1", "alice", "hi", "msg-ghost")
	assert.ErrorIs(t, err, errs.ErrInvalidReplyTarget)

	target, err := Send("c1", "alice", "original", "")
	require.NoError(t, err)

	reply, err := Send("c1", "bob", "re: original", target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, reply.ReplyTo)

	// target lives in another conversation
	_, err = Send("c2", "alice", "cross", target.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidReplyTarget)
}

func TestReplyToDeletedMessageStillValid(t *testing.T) {
	openTestStore(t)

	target, err := Send("c1", "alice", "soon gone", "")
	require.NoError(t, err)
	require.NoError(t, Delete(target.ID, "alice"))

	// the tombstone stays in the ledger, so replying to it stays legal
	reply, err := Send("c1", "bob", "re: gone", target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, reply.ReplyTo)
}

func TestDeleteSenderOnlyAndTerminal(t *testing.T) {
	openTestStore(t)

	m, err := Send("c1", "alice", "secret", "")
	require.NoError(t, err)

	err = Delete(m.ID, "bob")
	assert.ErrorIs(t, err, errs.ErrNotAuthorized)

	require.NoError(t, Delete(m.ID, "alice"))
	got, _, err := store.GetMessage(m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, models.DeletedBody, got.Body)

	// repeat delete is a no-op; flag and body unchanged
	require.NoError(t, Delete(m.ID, "alice"))
	got2, _, err := store.GetMessage(m.ID)
	require.NoError(t, err)
	assert.True(t, got2.IsDeleted)
	assert.Equal(t, models.DeletedBody, got2.Body)
}

func TestDeleteUnknownMessageIsNoop(t *testing.T) {
	openTestStore(t)

	assert.NoError(t, Delete("msg-ghost", "alice"))
	assert.ErrorIs(t, Delete("msg-ghost", ""), errs.ErrUnauthenticated)
}

func TestDeletePreservesOrdering(t *testing.T) {
	openTestStore(t)

	m1, err := Send("c1", "alice", "one", "")
	require.NoError(t, err)
	m2, err := Send("c1", "bob", "two", "")
	require.NoError(t, err)

	require.NoError(t, Delete(m1.ID, "alice"))

	msgs, err := List("c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.ID, msgs[0].ID)
	assert.True(t, msgs[0].IsDeleted)
	assert.Equal(t, m2.ID, msgs[1].ID)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	openTestStore(t)

	// alice, bob, alice
	_, err := Send("c1", "alice", "one", "")
	require.NoError(t, err)
	_, err = Send("c1", "bob", "two", "")
	require.NoError(t, err)
	_, err = Send("c1", "alice", "three", "")
	require.NoError(t, err)

	n, err := UnreadCount("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = UnreadCount("c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, MarkRead("c1", "bob"))

	n, err = UnreadCount("c1", "bob")
	require.NoError(t, err)
	assert.Zero(t, n)
	// bob's own message is still unread from alice's side
	n, err = UnreadCount("c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// idempotent
	require.NoError(t, MarkRead("c1", "bob"))
	n, err = UnreadCount("c1", "bob")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLast(t *testing.T) {
	openTestStore(t)

	last, err := Last("c1")
	require.NoError(t, err)
	assert.Nil(t, last)

	_, err = Send("c1", "alice", "one", "")
	require.NoError(t, err)
	m2, err := Send("c1", "bob", "two", "")
	require.NoError(t, err)

	last, err = Last("c1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, m2.ID, last.ID)
}
