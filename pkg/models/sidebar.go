package models

// SidebarEntry is the aggregated per-counterpart view: conversation (if
// any), last message, unread count and live presence. It is a transient
// read model, recomputed on every listing.
type SidebarEntry struct {
	User           User      `json:"user"`
	ConversationID string    `json:"conversation_id,omitempty"`
	LastMessage    *Message  `json:"last_message,omitempty"`
	UnreadCount    int       `json:"unread_count"`
	Presence       *Presence `json:"presence,omitempty"`
}
