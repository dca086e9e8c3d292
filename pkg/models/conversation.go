package models

// Conversation joins exactly two distinct users. The pair is semantically
// unordered: {A,B} and {B,A} name the same conversation. Records are never
// mutated or deleted after creation.
type Conversation struct {
	ID           string `json:"id"`
	ParticipantA string `json:"participant_a"`
	ParticipantB string `json:"participant_b"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
}

// HasParticipant reports whether the given user is one of the two parties.
func (c Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other returns the counterpart of userID, or empty when userID is not a
// participant.
func (c Conversation) Other(userID string) string {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}
