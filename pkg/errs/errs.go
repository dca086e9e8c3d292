// Package errs defines the error kinds shared by the core components.
// Handlers map them to HTTP status codes with errors.Is; components wrap
// them with context via fmt.Errorf("…: %w", …).
package errs

import "errors"

var (
	// ErrUnauthenticated: no verified caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotAuthorized: authenticated but not permitted for this target.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidArgument: malformed or self-referential input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidReplyTarget: reply target missing or in another conversation.
	ErrInvalidReplyTarget = errors.New("invalid reply target")
	// ErrNotFound: referenced record does not exist.
	ErrNotFound = errors.New("not found")
)
