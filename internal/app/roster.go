package service

import (
	"context"
	"errors"

	"github.com/okian/fitscore/internal/adapters/repository"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/pkg/logger"
)

// errRead is shown on the dashboard when the stream or a one-shot read fails.
var errRead = errors.New(MessageReadFailed)

// Watch mounts a roster view on the live collection. onFrame receives a fresh
// frame after every snapshot and once more if the stream fails; the failure
// frame is the last one. The returned subscription must be released by the
// caller when the view is torn down.
func (s *Service) Watch(ctx context.Context, filter string, onFrame func(roster.Frame)) (*roster.View, repository.Subscription, error) {
	v := roster.New()
	v.SetFilter(filter)

	sub, err := s.store.Subscribe(ctx, s.CollectionPath(),
		func(snap []model.Candidate) {
			v.Apply(snap)
			onFrame(v.Render())
		},
		func(err error) {
			s.logger.Error(ctx, "roster subscription failed", logger.Error(err))
			v.Fail(errRead)
			onFrame(v.Render())
		})
	if err != nil {
		return nil, nil, err
	}
	return v, sub, nil
}

// RosterFrame renders the current collection once, without a subscription.
func (s *Service) RosterFrame(ctx context.Context, filter string) roster.Frame {
	v := roster.New()
	v.SetFilter(filter)
	snap, err := s.store.Snapshot(ctx, s.CollectionPath())
	if err != nil {
		s.logger.Error(ctx, "roster read failed", logger.Error(err))
		v.Fail(errRead)
		return v.Render()
	}
	v.Apply(snap)
	return v.Render()
}
