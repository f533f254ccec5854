package repository

import (
	"context"
	"fmt"

	"github.com/okian/fitscore/internal/domain/model"
)

// Unconfigured stands in when no persistence backend is configured. Writes fail
// with ErrWrite and every subscriber gets ErrNotConfigured, so the pages show an
// error instead of the process crashing.
type Unconfigured struct {
	// Reason is appended to the errors, e.g. the config parse failure.
	Reason string
}

var _ Store = Unconfigured{}

func (u Unconfigured) err() error {
	if u.Reason == "" {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, u.Reason)
}

// Create implements Store.
func (u Unconfigured) Create(context.Context, string, model.Candidate) (string, error) {
	return "", fmt.Errorf("%w: %w", ErrWrite, u.err())
}

// Subscribe implements Store.
func (u Unconfigured) Subscribe(_ context.Context, _ string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	sub := newSubscription(onSnapshot, onError)
	sub.fail(u.err())
	return sub, nil
}

// Snapshot implements Store.
func (u Unconfigured) Snapshot(context.Context, string) ([]model.Candidate, error) {
	return nil, fmt.Errorf("%w: %w", ErrRead, u.err())
}

// Close implements Store.
func (Unconfigured) Close() error { return nil }
