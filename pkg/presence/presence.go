// Package presence tracks last-seen time, online flag and typing target
// per user.
//
// Online state is derived lazily at read time: a user whose stored flag is
// still true but whose last heartbeat is older than the timeout is reported
// offline. No background sweep runs; staleness is bounded by the heartbeat
// interval plus the timeout.
package presence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pairchat/pkg/models"
	"pairchat/pkg/store"
)

// DefaultOnlineTimeout is how long after the last heartbeat a user still
// counts as online.
const DefaultOnlineTimeout = 60 * time.Second

var (
	onlineTimeout = DefaultOnlineTimeout

	// nowFn is swapped out in tests; production code always uses time.Now.
	nowFn = time.Now

	reportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairchat_presence_reports_total",
		Help: "Presence heartbeats received.",
	})
)

// SetOnlineTimeout overrides the online timeout. Zero or negative values
// restore the default.
func SetOnlineTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultOnlineTimeout
	}
	onlineTimeout = d
}

// Report upserts the user's presence record: the online flag, last-seen
// time and typing target. An empty typingIn clears typing. The typing
// target is a trusted client signal; membership is not validated. Reports
// for an empty user id are silently dropped so the heartbeat path never
// blocks the UI.
func Report(userID string, isOnline bool, typingIn string) error {
	if userID == "" {
		return nil
	}
	p := models.Presence{
		User:     userID,
		IsOnline: isOnline,
		LastSeen: nowFn().UTC().UnixNano(),
		TypingIn: typingIn,
	}
	if err := store.SavePresence(p); err != nil {
		return err
	}
	reportsTotal.Inc()
	return nil
}

// Get returns the user's presence with the stored online flag replaced by
// the derived effective state, or nil when the user has never reported.
func Get(userID string) (*models.Presence, error) {
	p, ok, err := store.GetPresence(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	elapsed := nowFn().UTC().UnixNano() - p.LastSeen
	p.IsOnline = p.IsOnline && elapsed < onlineTimeout.Nanoseconds()
	return &p, nil
}
