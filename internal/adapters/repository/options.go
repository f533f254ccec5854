package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/fitscore/pkg/logger"
)

// Option configures a store.
type Option func(*settings)

type settings struct {
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

func defaultSettings() settings {
	return settings{
		log:   logger.Discard(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the record id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if gen != nil {
			s.newID = gen
		}
	}
}
