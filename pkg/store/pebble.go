package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pairchat/pkg/errs"
	"pairchat/pkg/logger"
	"pairchat/pkg/models"

	"github.com/cockroachdb/pebble"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq is a small counter appended to message keys so that messages sharing
// the same nanosecond timestamp still get distinct, ordered keys.
var seq uint64

// Key layout:
//
//	user:<id>                    user record JSON
//	userext:<external_key>       external identity -> user id
//	conv:<id>:meta               conversation record JSON
//	conv:<id>:msg:<ns>-<seq>     message JSON, zero-padded ns for ordering
//	convpair:<min>|<max>         canonical unordered pair -> conversation id
//	msgid:<id>                   message id -> its conv:<id>:msg:... key
//	presence:<user>              presence record JSON
const (
	userPrefix     = "user:"
	userExtPrefix  = "userext:"
	convPrefix     = "conv:"
	convPairPrefix = "convpair:"
	msgIDPrefix    = "msgid:"
	presencePrefix = "presence:"
)

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", zap.String("path", path))
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", zap.String("path", path))
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpened() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

func get(key string, v interface{}) error {
	raw, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return errs.ErrNotFound
		}
		return err
	}
	defer closer.Close()
	return json.Unmarshal(raw, v)
}

func set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return db.Set([]byte(key), raw, pebble.Sync)
}

// --- users ---

// SaveUser writes the user record and its external-key index entry.
func SaveUser(u models.User) error {
	if db == nil {
		return notOpened()
	}
	if err := set(userPrefix+u.ID, u); err != nil {
		logger.Error("save_user_failed", zap.String("user", u.ID), zap.Error(err))
		return err
	}
	if err := db.Set([]byte(userExtPrefix+u.ExternalKey), []byte(u.ID), pebble.Sync); err != nil {
		logger.Error("save_user_index_failed", zap.String("external", u.ExternalKey), zap.Error(err))
		return err
	}
	return nil
}

// GetUser returns the user record for an internal id.
func GetUser(id string) (models.User, error) {
	var u models.User
	if db == nil {
		return u, notOpened()
	}
	err := get(userPrefix+id, &u)
	return u, err
}

// GetUserIDByExternal resolves the external identity key to an internal id.
func GetUserIDByExternal(external string) (string, error) {
	if db == nil {
		return "", notOpened()
	}
	raw, closer, err := db.Get([]byte(userExtPrefix + external))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	defer closer.Close()
	return string(raw), nil
}

// ListUsers returns all user records.
func ListUsers() ([]models.User, error) {
	if db == nil {
		return nil, notOpened()
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	prefix := []byte(userPrefix)
	var out []models.User
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var u models.User
		if err := json.Unmarshal(iter.Value(), &u); err != nil {
			return nil, fmt.Errorf("invalid user record at %s: %w", iter.Key(), err)
		}
		out = append(out, u)
	}
	return out, iter.Error()
}

// --- conversations ---

// SaveConversation writes the conversation record and its canonical pair
// index entry. pairKey must be the canonicalized unordered pair key.
func SaveConversation(c models.Conversation, pairKey string) error {
	if db == nil {
		return notOpened()
	}
	if err := set(convPrefix+c.ID+":meta", c); err != nil {
		logger.Error("save_conversation_failed", zap.String("conversation", c.ID), zap.Error(err))
		return err
	}
	if err := db.Set([]byte(convPairPrefix+pairKey), []byte(c.ID), pebble.Sync); err != nil {
		logger.Error("save_conversation_index_failed", zap.String("pair", pairKey), zap.Error(err))
		return err
	}
	logger.Info("conversation_saved", zap.String("conversation", c.ID), zap.String("pair", pairKey))
	return nil
}

// GetConversation returns the conversation record for an id.
func GetConversation(id string) (models.Conversation, error) {
	var c models.Conversation
	if db == nil {
		return c, notOpened()
	}
	err := get(convPrefix+id+":meta", &c)
	return c, err
}

// GetConversationIDByPair resolves a canonical pair key to a conversation
// id. Returns errs.ErrNotFound when no conversation exists for the pair.
func GetConversationIDByPair(pairKey string) (string, error) {
	if db == nil {
		return "", notOpened()
	}
	raw, closer, err := db.Get([]byte(convPairPrefix + pairKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	defer closer.Close()
	return string(raw), nil
}

// --- messages ---

func msgKey(convID string, ts int64, s uint64) string {
	return fmt.Sprintf("%s%s:msg:%020d-%06d", convPrefix, convID, ts, s)
}

func msgPrefix(convID string) []byte {
	return []byte(convPrefix + convID + ":msg:")
}

// AppendMessage appends a message to a conversation under a sortable
// timestamp key and indexes it by message ID. The store assigns the
// creation timestamp; key order is creation order, ties broken by the
// sequence counter and never reordered later.
func AppendMessage(convID string, msg models.Message) (models.Message, error) {
	if db == nil {
		return msg, notOpened()
	}
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	msg.Conversation = convID
	msg.TS = ts
	key := msgKey(convID, ts, s)

	raw, err := json.Marshal(msg)
	if err != nil {
		return msg, fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(key), raw, pebble.Sync); err != nil {
		logger.Error("append_message_failed", zap.String("conversation", convID), zap.String("key", key), zap.Error(err))
		return msg, err
	}
	if err := db.Set([]byte(msgIDPrefix+msg.ID), []byte(key), pebble.Sync); err != nil {
		logger.Error("append_message_index_failed", zap.String("msg_id", msg.ID), zap.Error(err))
		return msg, err
	}
	logger.Info("message_appended", zap.String("conversation", convID), zap.String("msg_id", msg.ID))
	return msg, nil
}

// GetMessage looks a message up by ID. It returns the message and the
// primary key it is stored under, so callers can patch it in place.
func GetMessage(msgID string) (models.Message, string, error) {
	var m models.Message
	if db == nil {
		return m, "", notOpened()
	}
	raw, closer, err := db.Get([]byte(msgIDPrefix + msgID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, "", errs.ErrNotFound
		}
		return m, "", err
	}
	key := string(raw)
	closer.Close()
	if err := get(key, &m); err != nil {
		return m, "", err
	}
	return m, key, nil
}

// PutMessageAt rewrites a message at its primary key. Used by the ledger to
// patch read/deleted flags; the key (and therefore ordering) never changes.
func PutMessageAt(key string, msg models.Message) error {
	if db == nil {
		return notOpened()
	}
	return set(key, msg)
}

// ListConversationMessages returns all messages of a conversation in
// creation order (ascending).
func ListConversationMessages(convID string) ([]models.Message, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := msgPrefix(convID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message record at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// LastConversationMessage returns the most recent message of a
// conversation, or nil when the conversation has none.
func LastConversationMessage(convID string) (*models.Message, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := msgPrefix(convID)
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	if !iter.Last() {
		return nil, iter.Error()
	}
	var m models.Message
	if err := json.Unmarshal(iter.Value(), &m); err != nil {
		return nil, fmt.Errorf("invalid message record at %s: %w", iter.Key(), err)
	}
	return &m, iter.Error()
}

// MarkConversationRead flags every unread message in the conversation not
// sent by reader as read. Messages already read and the reader's own
// messages are left untouched. Returns the number of messages patched.
func MarkConversationRead(convID, reader string) (int, error) {
	if db == nil {
		return 0, notOpened()
	}
	prefix := msgPrefix(convID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	patched := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return patched, fmt.Errorf("invalid message record at %s: %w", iter.Key(), err)
		}
		if m.IsRead || m.Sender == reader {
			continue
		}
		m.IsRead = true
		raw, err := json.Marshal(m)
		if err != nil {
			return patched, err
		}
		key := append([]byte(nil), iter.Key()...)
		if err := db.Set(key, raw, pebble.Sync); err != nil {
			return patched, err
		}
		patched++
	}
	return patched, iter.Error()
}

// --- presence ---

// SavePresence upserts the presence record for a user.
func SavePresence(p models.Presence) error {
	if db == nil {
		return notOpened()
	}
	if err := set(presencePrefix+p.User, p); err != nil {
		logger.Error("save_presence_failed", zap.String("user", p.User), zap.Error(err))
		return err
	}
	return nil
}

// GetPresence returns the presence record for a user; ok is false when the
// user has never reported presence.
func GetPresence(userID string) (models.Presence, bool, error) {
	var p models.Presence
	if db == nil {
		return p, false, notOpened()
	}
	err := get(presencePrefix+userID, &p)
	if errors.Is(err, errs.ErrNotFound) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	return p, true, nil
}

// --- raw helpers ---

// ListKeys returns all keys (as strings) that start with the given prefix.
// If prefix is empty it returns all keys in the DB.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, notOpened()
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	if prefix == "" {
		for iter.First(); iter.Valid(); iter.Next() {
			out = append(out, string(append([]byte(nil), iter.Key()...)))
		}
		return out, iter.Error()
	}
	pfx := []byte(prefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}

// Compact triggers a manual compaction over the whole keyspace. Used by the
// maintenance job; safe to call on a live DB.
func Compact() error {
	if db == nil {
		return notOpened()
	}
	return db.Compact([]byte{0x00}, []byte{0xff}, true)
}
