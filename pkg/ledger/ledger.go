// Package ledger appends, soft-deletes and lists the messages of a
// conversation, with reply linkage and read-state accounting.
package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"pairchat/pkg/errs"
	"pairchat/pkg/logger"
	"pairchat/pkg/models"
	"pairchat/pkg/store"
)

var (
	sentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairchat_messages_sent_total",
		Help: "Messages appended to the ledger.",
	})
	deletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairchat_messages_deleted_total",
		Help: "Messages soft-deleted by their sender.",
	})
)

var idSeq uint64

// genID generates a message id from the current UTC nanosecond timestamp
// and an atomic sequence number, format "msg-<ts>-<seq>".
func genID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// Send appends a message to a conversation. The store assigns the creation
// timestamp, strictly increasing per conversation with ties broken by
// insertion order. Empty or whitespace-only bodies are accepted; trimming
// is a presentation concern.
func Send(convID, senderID, body, replyTo string) (models.Message, error) {
	var m models.Message
	if senderID == "" {
		return m, fmt.Errorf("send: %w", errs.ErrUnauthenticated)
	}
	if convID == "" {
		return m, fmt.Errorf("%w: conversation id required", errs.ErrInvalidArgument)
	}
	if replyTo != "" {
		target, _, err := store.GetMessage(replyTo)
		if errors.Is(err, errs.ErrNotFound) {
			return m, fmt.Errorf("%w: %s does not exist", errs.ErrInvalidReplyTarget, replyTo)
		}
		if err != nil {
			return m, err
		}
		if target.Conversation != convID {
			return m, fmt.Errorf("%w: %s belongs to another conversation", errs.ErrInvalidReplyTarget, replyTo)
		}
	}
	m = models.Message{
		ID:      genID(),
		Sender:  senderID,
		Body:    body,
		ReplyTo: replyTo,
	}
	m, err := store.AppendMessage(convID, m)
	if err != nil {
		return m, err
	}
	sentTotal.Inc()
	return m, nil
}

// Delete soft-deletes a message: the deleted flag is permanent and the body
// is replaced with the fixed placeholder. Only the sender may delete.
// Deleting a message that does not exist is a no-op, not an error.
func Delete(msgID, callerID string) error {
	if callerID == "" {
		return fmt.Errorf("delete: %w", errs.ErrUnauthenticated)
	}
	m, key, err := store.GetMessage(msgID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.Sender != callerID {
		return fmt.Errorf("%w: only the sender may delete a message", errs.ErrNotAuthorized)
	}
	if m.IsDeleted {
		return nil
	}
	m.IsDeleted = true
	m.Body = models.DeletedBody
	if err := store.PutMessageAt(key, m); err != nil {
		return err
	}
	deletedTotal.Inc()
	logger.Info("message_deleted", zap.String("msg_id", msgID), zap.String("conversation", m.Conversation))
	return nil
}

// MarkRead flags every message in the conversation that the caller did not
// send as read. Idempotent; safe to call on every view of a conversation.
func MarkRead(convID, callerID string) error {
	if callerID == "" {
		return fmt.Errorf("mark read: %w", errs.ErrUnauthenticated)
	}
	n, err := store.MarkConversationRead(convID, callerID)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Debug("messages_marked_read", zap.String("conversation", convID), zap.Int("count", n))
	}
	return nil
}

// List returns all messages of a conversation in creation order.
func List(convID string) ([]models.Message, error) {
	return store.ListConversationMessages(convID)
}

// Last returns the most recent message of a conversation, or nil when the
// conversation has none.
func Last(convID string) (*models.Message, error) {
	return store.LastConversationMessage(convID)
}

// UnreadCount derives the number of messages the viewer has not read.
// Computed on demand, never cached, so concurrent writers cannot leave a
// stale count behind.
func UnreadCount(convID, viewerID string) (int, error) {
	msgs, err := store.ListConversationMessages(convID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range msgs {
		if !m.IsRead && m.Sender != viewerID {
			n++
		}
	}
	return n, nil
}
