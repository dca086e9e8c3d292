package models

// DeletedBody replaces the body of a soft-deleted message.
const DeletedBody = "This message was deleted"

type Message struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	Sender       string `json:"sender"`
	Body         string `json:"body"`
	// Creation timestamp (ns), assigned by the store; sole ordering key
	TS int64 `json:"ts"`
	// Optional reply-to message ID; target must live in the same conversation
	ReplyTo   string `json:"reply_to,omitempty"`
	IsRead    bool   `json:"is_read"`
	IsDeleted bool   `json:"is_deleted"`
}
