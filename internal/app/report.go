package service

import (
	"context"
	"fmt"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/scoring"
	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

// ApprovedMinScore is the lowest fit score listed in the approved report; it is
// the floor of the top tier.
var ApprovedMinScore = scoring.Table()[0].Min

// GenerateReport lists the approved candidates of the namespace and hands the
// report to the notification pipeline. Only one report runs at a time.
func (s *Service) GenerateReport(ctx context.Context) (Confirmation, *model.Report, error) {
	if !s.reporting.CompareAndSwap(false, true) {
		return Confirmation{Title: TitleReportFailed, Message: MessageReportBusy}, nil, ErrReportInFlight
	}
	defer s.reporting.Store(false)

	sleep(ctx, s.reportDelay)
	if err := ctx.Err(); err != nil {
		return Confirmation{Title: TitleReportFailed, Message: err.Error()}, nil, err
	}

	snap, err := s.store.Snapshot(ctx, s.CollectionPath())
	if err != nil {
		s.logger.Error(ctx, "report read failed", logger.Error(err))
		return Confirmation{Title: TitleReportFailed, Message: MessageReadFailed}, nil, err
	}

	rep := &model.Report{
		AppID:       s.appID,
		Approved:    Approved(snap),
		Total:       len(snap),
		GeneratedAt: s.now(),
	}
	s.notify(context.WithoutCancel(ctx), model.Notification{
		ID:        s.newID(),
		Kind:      model.NotifyReport,
		Report:    rep,
		CreatedAt: rep.GeneratedAt,
	})
	metrics.RecordReportGenerated()
	s.logger.Info(ctx, "approved report generated",
		logger.Int("approved", len(rep.Approved)), logger.Int("total", rep.Total))

	return Confirmation{
		Title: TitleReport,
		Message: fmt.Sprintf("O relatório de aprovados foi gerado e enviado com %d candidato(s) com FitScore >= %d.",
			len(rep.Approved), ApprovedMinScore),
		Success: true,
	}, rep, nil
}

// Approved returns the candidates whose fit score reaches ApprovedMinScore, in
// snapshot order.
func Approved(snap []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(snap))
	for _, c := range snap {
		if c.FitScore >= ApprovedMinScore {
			out = append(out, c)
		}
	}
	return out
}
