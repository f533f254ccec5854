package api

import (
	"sync"

	"github.com/okian/fitscore/internal/domain/roster"
)

// liveStream is the server side of one open dashboard: its view and a one-slot
// wake signal telling the stream loop to render again.
type liveStream struct {
	view *roster.View
	wake chan struct{}
}

func newLiveStream() *liveStream {
	return &liveStream{wake: make(chan struct{}, 1)}
}

// poke asks the stream loop for a fresh frame. Pending pokes coalesce.
func (s *liveStream) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// streamRegistry indexes open streams by id so filter changes reach the view
// that owns the subscription.
type streamRegistry struct {
	mu      sync.Mutex
	streams map[string]*liveStream
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{streams: make(map[string]*liveStream)}
}

func (r *streamRegistry) add(id string, s *liveStream) {
	r.mu.Lock()
	r.streams[id] = s
	r.mu.Unlock()
}

func (r *streamRegistry) get(id string) (*liveStream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	return s, ok
}

func (r *streamRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.streams, id)
	r.mu.Unlock()
}
