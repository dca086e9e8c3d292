// Package registry resolves the single conversation for an unordered pair
// of users.
//
// The pair is canonicalized (lexicographically smaller id first) and kept
// under one deterministic index key, so lookup is a single read instead of
// two OR'd queries over an ordered tuple. Check-then-create is serialized
// per canonical pair; without that, concurrent first contacts between the
// same two users would race and split the message history across two
// conversations.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pairchat/pkg/errs"
	"pairchat/pkg/logger"
	"pairchat/pkg/models"
	"pairchat/pkg/store"
)

// pairLocks hands out one mutex per canonical pair key, created lazily.
type pairLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (p *pairLocks) get(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*sync.Mutex)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.m[key] = l
	return l
}

var locks pairLocks

// PairKey returns the canonical index key for an unordered user pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func checkPair(a, b string) error {
	if a == "" || b == "" {
		return fmt.Errorf("%w: participant ids required", errs.ErrInvalidArgument)
	}
	if a == b {
		return fmt.Errorf("%w: conversation requires two distinct users", errs.ErrInvalidArgument)
	}
	return nil
}

// GetOrCreate returns the id of the one conversation between the two users,
// creating it on first contact. Idempotent: repeated and concurrent calls
// for the same unordered pair return the same id.
func GetOrCreate(userA, userB string) (string, error) {
	if err := checkPair(userA, userB); err != nil {
		return "", err
	}
	key := PairKey(userA, userB)

	l := locks.get(key)
	l.Lock()
	defer l.Unlock()

	id, err := store.GetConversationIDByPair(key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return "", err
	}

	c := models.Conversation{
		ID:           uuid.NewString(),
		ParticipantA: userA,
		ParticipantB: userB,
		CreatedTS:    time.Now().UTC().UnixNano(),
	}
	if err := store.SaveConversation(c, key); err != nil {
		return "", err
	}
	logger.Info("conversation_created", zap.String("conversation", c.ID))
	return c.ID, nil
}

// Lookup resolves the conversation for an unordered pair without creating
// one. Returns errs.ErrNotFound when the users have never been in contact.
func Lookup(userA, userB string) (string, error) {
	if err := checkPair(userA, userB); err != nil {
		return "", err
	}
	return store.GetConversationIDByPair(PairKey(userA, userB))
}
