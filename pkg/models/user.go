package models

// User is the stable internal record for an externally authenticated
// identity. ID never changes once assigned; profile fields are overwritten
// on every identity sync.
type User struct {
	ID          string `json:"id"`
	ExternalKey string `json:"external_key"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
}
