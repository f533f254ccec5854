package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNoStreaming = errors.New("streaming unsupported")
	ErrNoStream    = errors.New("stream not found")
)

// WrapKind tags err with op and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
