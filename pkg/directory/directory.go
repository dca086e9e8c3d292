// Package directory maps external authenticated identities to stable
// internal user records.
package directory

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

// createMu serializes check-then-create so two concurrent first syncs of
// the same external key cannot mint two user records.
var createMu sync.Mutex

// Sync resolves an external identity to the internal user id, creating the
// user on first contact. The internal id is immutable; profile fields are
// overwritten on every re-sync.
func Sync(externalKey, name, email, avatar string) (string, error) {
	if externalKey == "" {
		return "", fmt.Errorf("%w: external key required", errs.ErrInvalidArgument)
	}
	createMu.Lock()
	defer createMu.Unlock()

	id, err := store.GetUserIDByExternal(externalKey)
	if err == nil {
		u, err := store.GetUser(id)
		if err != nil {
			return "", fmt.Errorf("load user %s: %w", id, err)
		}
		u.Name = name
		u.Email = email
		u.Avatar = avatar
		if err := store.SaveUser(u); err != nil {
			return "", err
		}
		return u.ID, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return "", err
	}

	u := models.User{
		ID:          uuid.NewString(),
		ExternalKey: externalKey,
		Name:        name,
		Email:       email,
		Avatar:      avatar,
		CreatedTS:   time.Now().UTC().UnixNano(),
	}
	if err := store.SaveUser(u); err != nil {
		return "", err
	}
	logger.Info("user_created", zap.String("user", u.ID))
	return u.ID, nil
}

// Resolve returns the internal user id for an external identity key, or
// errs.ErrNotFound when the identity has never synced.
func Resolve(externalKey string) (string, error) {
	return store.GetUserIDByExternal(externalKey)
}
