package identity

import (
	"context"
	"sync"

	"github.com/okian/fitscore/pkg/logger"
)

// Session tracks the identity of one mounted form. It is resolved at most once:
// either from a presented token or by a background anonymous sign-in.
type Session struct {
	provider Provider
	log      logger.Logger

	mu        sync.Mutex
	settled   bool
	identity  *Identity
	err       error
	listeners map[int]func(*Identity)
	nextID    int
	done      chan struct{}
}

// NewSession constructs an unresolved session.
func NewSession(p Provider, log logger.Logger) *Session {
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		provider:  p,
		log:       log,
		listeners: make(map[int]func(*Identity)),
		done:      make(chan struct{}),
	}
}

// Start adopts the identity carried by token if it is valid. Otherwise it
// launches an anonymous sign-in in the background and returns immediately.
// The sign-in is not tied to ctx beyond its values.
func (s *Session) Start(ctx context.Context, token string) {
	if token != "" {
		if id, err := s.provider.Resolve(ctx, token); err == nil {
			s.settle(&id, nil)
			return
		}
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		id, err := s.provider.SignInAnonymously(bg)
		if err != nil {
			s.log.Error(bg, "anonymous sign-in failed", logger.Error(err))
			s.settle(nil, err)
			return
		}
		s.settle(&id, nil)
	}()
}

func (s *Session) settle(id *Identity, err error) {
	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		return
	}
	s.settled = true
	s.identity = id
	s.err = err
	fns := make([]func(*Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	close(s.done)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// OnIdentityChange registers fn to be called with the identity once it is known,
// or with nil when sign-in failed. If the session is already settled fn is
// called right away. The returned func removes the registration.
func (s *Session) OnIdentityChange(fn func(*Identity)) (cancel func()) {
	s.mu.Lock()
	if s.settled {
		id := s.identity
		s.mu.Unlock()
		fn(id)
		return func() {}
	}
	key := s.nextID
	s.nextID++
	s.listeners[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, key)
		s.mu.Unlock()
	}
}

// Current returns the identity if one has been established.
func (s *Session) Current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Err returns the sign-in failure, if any. It is persistent for the session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Settled reports whether sign-in finished, successfully or not.
func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Wait blocks until the session settles or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
