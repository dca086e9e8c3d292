// Package sidebar composes the registry, ledger and presence tracker into
// one recency-ordered per-user feed.
//
// The feed is a read model recomputed in full on every call; nothing is
// cached or incrementally maintained, and listing never creates a
// conversation as a side effect. Cost is O(users x messages-per-
// conversation) per call, which is fine at direct-messaging scale.
package sidebar

import (
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pairchat/pkg/errs"
	"pairchat/pkg/ledger"
	"pairchat/pkg/models"
	"pairchat/pkg/presence"
	"pairchat/pkg/registry"
	"pairchat/pkg/store"
)

var queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pairchat_sidebar_queries_total",
	Help: "Sidebar feed recomputations.",
})

// ListForUser returns one entry per other known user, sorted by the
// creation time of the latest message, newest first. Entries without a
// conversation or without messages sort last; ties break on the
// counterpart's user id so the order is stable across calls.
func ListForUser(viewerID string) ([]models.SidebarEntry, error) {
	if viewerID == "" {
		return nil, fmt.Errorf("list sidebar: %w", errs.ErrUnauthenticated)
	}
	users, err := store.ListUsers()
	if err != nil {
		return nil, err
	}

	entries := make([]models.SidebarEntry, 0, len(users))
	for _, u := range users {
		if u.ID == viewerID {
			continue
		}
		entry := models.SidebarEntry{User: u}

		convID, err := registry.Lookup(viewerID, u.ID)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			// no contact yet; presence still shown
		case err != nil:
			return nil, err
		default:
			entry.ConversationID = convID
			last, err := ledger.Last(convID)
			if err != nil {
				return nil, err
			}
			entry.LastMessage = last
			unread, err := ledger.UnreadCount(convID, viewerID)
			if err != nil {
				return nil, err
			}
			entry.UnreadCount = unread
		}

		p, err := presence.Get(u.ID)
		if err != nil {
			return nil, err
		}
		entry.Presence = p
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := lastTS(entries[i]), lastTS(entries[j])
		if ti != tj {
			return ti > tj
		}
		return entries[i].User.ID < entries[j].User.ID
	})
	queriesTotal.Inc()
	return entries, nil
}

func lastTS(e models.SidebarEntry) int64 {
	if e.LastMessage == nil {
		return 0
	}
	return e.LastMessage.TS
}
