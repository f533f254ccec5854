package seed

import "errors"

// Sentinel kinds for seed runs.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrAuthTimeout  = errors.New("form sign-in did not complete")
	ErrAuthFailed   = errors.New("form sign-in failed")
	ErrNotVisible   = errors.New("submitted records not visible")
	ErrInconsistent = errors.New("stored records disagree with their ratings")
)
