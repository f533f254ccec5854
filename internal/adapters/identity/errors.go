package identity

import "errors"

// Sentinel kinds for identity errors.
var (
	ErrAuth         = errors.New("authentication failed")
	ErrInvalidToken = errors.New("invalid identity token")
	ErrNoSecret     = errors.New("signing secret not configured")
)
