// Package notify delivers submission and report notifications.
//
// Sinks satisfy worker.Dispatcher. The log sink is always available; the Kafka
// sink is added when brokers are configured.
package notify

import (
	"context"
	"errors"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/logger"
)

// Sink delivers a notification.
type Sink interface {
	Dispatch(ctx context.Context, n model.Notification) error
	Close() error
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	log logger.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink constructs a LogSink.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Discard()
	}
	return &LogSink{log: l}
}

// Dispatch implements Sink.
func (s *LogSink) Dispatch(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches Dispatcher
	fields := []logger.Field{
		logger.String("id", n.ID),
		logger.String("kind", string(n.Kind)),
	}
	switch {
	case n.Candidate != nil:
		fields = append(fields,
			logger.String("candidate", n.Candidate.ID),
			logger.Int("fit_score", n.Candidate.FitScore),
			logger.String("classification", string(n.Candidate.Classification)))
	case n.Report != nil:
		fields = append(fields,
			logger.String("app_id", n.Report.AppID),
			logger.Int("approved", len(n.Report.Approved)),
			logger.Int("total", n.Report.Total))
	}
	s.log.Info(ctx, "notification", fields...)
	return nil
}

// Close implements Sink.
func (*LogSink) Close() error { return nil }

// Fanout dispatches to every sink and joins their errors.
type Fanout []Sink

var _ Sink = Fanout(nil)

// Dispatch implements Sink.
func (f Fanout) Dispatch(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches Dispatcher
	var errs []error
	for _, s := range f {
		if err := s.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
