package repository

import (
	"sync"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/metrics"
)

// hub fans snapshots out to the subscriptions of each collection.
type hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscription]struct{})}
}

// add registers s under path. It returns false once the hub is closed.
func (h *hub) add(path string, s *subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.subs[path]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[path] = set
	}
	set[s] = struct{}{}
	s.detach = func() { h.remove(path, s) }
	metrics.AddSubscriptions(1)
	return true
}

func (h *hub) remove(path string, s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[path]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, path)
	}
	metrics.AddSubscriptions(-1)
}

// watching reports whether path has any subscriber.
func (h *hub) watching(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[path]) > 0
}

// publish offers snapshot to every subscriber of path.
func (h *hub) publish(path string, snapshot []model.Candidate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[path] {
		s.offer(snapshot)
	}
}

// failAll ends every subscription of path with err.
func (h *hub) failAll(path string, err error) {
	h.mu.Lock()
	set := h.subs[path]
	delete(h.subs, path)
	h.mu.Unlock()
	for s := range set {
		metrics.AddSubscriptions(-1)
		s.fail(err)
	}
}

// close ends all subscriptions with err and rejects new ones.
func (h *hub) close(err error) {
	h.mu.Lock()
	h.closed = true
	all := h.subs
	h.subs = make(map[string]map[*subscription]struct{})
	h.mu.Unlock()
	for _, set := range all {
		for s := range set {
			metrics.AddSubscriptions(-1)
			s.fail(err)
		}
	}
}

// subscription delivers snapshots from a one-slot mailbox on its own goroutine,
// so a slow consumer never blocks writers and only ever sees the latest listing.
type subscription struct {
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	mailbox chan []model.Candidate
	errc    chan error
	done    chan struct{}
	exited  chan struct{}

	mu      sync.Mutex
	stopped bool
	once    sync.Once
	detach  func()
}

func newSubscription(onSnapshot SnapshotFunc, onError ErrorFunc) *subscription {
	s := &subscription{
		onSnapshot: onSnapshot,
		onError:    onError,
		mailbox:    make(chan []model.Candidate, 1),
		errc:       make(chan error, 1),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
	go s.run()
	return s
}

// offer replaces any undelivered snapshot with snapshot.
func (s *subscription) offer(snapshot []model.Candidate) {
	for {
		select {
		case s.mailbox <- snapshot:
			return
		default:
		}
		select {
		case <-s.mailbox:
			metrics.RecordSnapshotCoalesced()
		default:
		}
	}
}

func (s *subscription) fail(err error) {
	select {
	case s.errc <- err:
	default:
	}
}

func (s *subscription) run() {
	defer close(s.exited)
	for {
		// done wins over pending work.
		select {
		case <-s.done:
			return
		default:
		}

		select {
		case <-s.done:
			return
		case err := <-s.errc:
			s.deliver(func() {
				if s.onError != nil {
					s.onError(err)
				}
			})
			s.stop()
			return
		case snap := <-s.mailbox:
			s.deliver(func() {
				if s.onSnapshot != nil {
					s.onSnapshot(snap)
				}
				metrics.RecordSnapshotDelivered()
			})
		}
	}
}

// deliver runs fn unless the subscription was stopped.
func (s *subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	fn()
}

func (s *subscription) stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.done)
		if s.detach != nil {
			s.detach()
		}
	})
}

// Unsubscribe implements Subscription.
func (s *subscription) Unsubscribe() {
	s.stop()
	<-s.exited
}
