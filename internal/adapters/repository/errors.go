package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrWrite             = errors.New("write failed")
	ErrRead              = errors.New("read failed")
	ErrNotConfigured     = errors.New("persistence is not configured")
	ErrClosed            = errors.New("store closed")
	ErrInvalidPath       = errors.New("invalid collection path")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrInvalidConfig     = errors.New("invalid store config")
)
