// Package repository is the document store holding candidate records.
//
// Records live in namespaced collections (see CollectionPath). Every store pushes a
// full snapshot of a collection to its subscribers after each insert; there are no
// diffs and no updates or deletes.
package repository

import (
	"context"
	"strings"

	"github.com/okian/fitscore/internal/domain/model"
)

// DefaultAppID is the namespace used when no application id is configured.
const DefaultAppID = "default-app-id"

// CollectionPath returns the candidates collection of an application namespace.
func CollectionPath(appID string) string {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		appID = DefaultAppID
	}
	return "artifacts/" + appID + "/public/data/candidates"
}

// SnapshotFunc receives the full current listing of a collection.
type SnapshotFunc func(snapshot []model.Candidate)

// ErrorFunc receives the error that ended a subscription.
type ErrorFunc func(err error)

// Subscription is a live stream of snapshots.
type Subscription interface {
	// Unsubscribe stops the stream. Once it returns, no callback fires again.
	// It must not be called from inside a callback of the same subscription.
	Unsubscribe()
}

// Store persists candidate records and streams collection snapshots.
type Store interface {
	// Create inserts record into the collection at path and returns its id.
	// ID and CreatedAt are assigned by the store. Failures wrap ErrWrite.
	Create(ctx context.Context, path string, record model.Candidate) (string, error)

	// Subscribe registers callbacks for the collection at path. The first
	// snapshot is delivered as soon as it is loaded. Snapshots are coalesced:
	// a subscriber that falls behind only sees the latest one. onError is
	// called at most once and ends the subscription.
	Subscribe(ctx context.Context, path string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)

	// Snapshot returns the current listing of the collection at path.
	Snapshot(ctx context.Context, path string) ([]model.Candidate, error)

	// Close releases resources and ends every subscription with ErrClosed.
	Close() error
}
