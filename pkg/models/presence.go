package models

// Presence is one record per user, upserted on every heartbeat and never
// deleted. IsOnline holds the last explicitly reported flag; readers must
// derive effective online state from LastSeen (see pkg/presence).
type Presence struct {
	User     string `json:"user"`
	IsOnline bool   `json:"is_online"`
	// LastSeen timestamp (ns)
	LastSeen int64 `json:"last_seen"`
	// TypingIn references the conversation the user is typing in, if any.
	// Trusted client signal; membership is not validated.
	TypingIn string `json:"typing_in,omitempty"`
}
