package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fitscore/internal/adapters/identity"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/scoring"
	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

// Confirmation is the dialog shown after a submission or a report.
type Confirmation struct {
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Success        bool          `json:"success"`
	Redirect       string        `json:"redirect,omitempty"`
	CandidateID    string        `json:"candidateId,omitempty"`
	FitScore       *int          `json:"fitScore,omitempty"`
	Classification scoring.Label `json:"classification,omitempty"`
}

// FormState is what the form page polls to enable or disable its controls.
type FormState struct {
	ID         string `json:"id"`
	AuthReady  bool   `json:"authReady"`
	UserID     string `json:"userId,omitempty"`
	AuthError  string `json:"authError,omitempty"`
	Submitting bool   `json:"submitting"`
}

// Form is one mounted evaluation form. It owns its identity session and allows
// at most one submission in flight.
type Form struct {
	id        string
	svc       *Service
	session   *identity.Session
	createdAt time.Time

	mu         sync.Mutex
	submitting bool
}

// OpenForm mounts a new form. A valid token is adopted as the form's identity;
// otherwise an anonymous sign-in starts in the background.
func (s *Service) OpenForm(ctx context.Context, token string) *Form {
	f := &Form{
		id:        s.newID(),
		svc:       s,
		session:   identity.NewSession(s.identities, s.logger.Named("identity")),
		createdAt: s.now(),
	}
	f.session.Start(ctx, token)
	if evicted := s.forms.Put(f); evicted != "" {
		s.logger.Debug(ctx, "form evicted", logger.String("form", evicted))
	}
	metrics.UpdateFormsActive(s.forms.Len())
	return f
}

// Form looks up a mounted form.
func (s *Service) Form(id string) (*Form, error) {
	f, ok := s.forms.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return f, nil
}

// CloseForm unmounts a form.
func (s *Service) CloseForm(id string) {
	s.forms.Delete(id)
	metrics.UpdateFormsActive(s.forms.Len())
}

// ID returns the form id.
func (f *Form) ID() string { return f.id }

// Session returns the identity session of the form.
func (f *Form) Session() *identity.Session { return f.session }

// State returns a snapshot of the form's control state.
func (f *Form) State() FormState {
	st := FormState{ID: f.id}
	if id, ok := f.session.Current(); ok {
		st.AuthReady = true
		st.UserID = id.UID
	}
	if f.session.Err() != nil {
		st.AuthError = MessageAuthFailed
	}
	f.mu.Lock()
	st.Submitting = f.submitting
	f.mu.Unlock()
	return st
}

// Submit validates the evaluation, scores it and writes a single record.
//
// The returned Confirmation is meaningful whenever the write was attempted:
// on success it carries the derived score, on a write failure it carries the
// failure detail. The form accepts a new submission once Submit returns.
func (f *Form) Submit(ctx context.Context, ev model.Evaluation) (Confirmation, error) {
	if err := f.session.Err(); err != nil {
		metrics.RecordSubmissionError("auth")
		return Confirmation{Title: TitleSubmitFailed, Message: MessageAuthFailed}, err
	}
	who, ok := f.session.Current()
	if !ok {
		metrics.RecordSubmissionError("auth_not_ready")
		return Confirmation{Title: TitleSubmitFailed, Message: MessageAuthNotReady}, ErrAuthNotReady
	}

	if !f.begin() {
		metrics.RecordSubmissionError("in_flight")
		return Confirmation{Title: TitleSubmitFailed, Message: MessageInFlight}, ErrSubmitInFlight
	}
	defer f.end()

	ev = ev.Normalize()
	if err := ev.Validate(); err != nil {
		metrics.RecordSubmissionError("validation")
		return Confirmation{Title: TitleSubmitFailed, Message: err.Error()}, err
	}

	rec := model.NewCandidate(ev, who.UID)
	id, err := f.svc.store.Create(ctx, f.svc.CollectionPath(), rec)
	if err != nil {
		metrics.RecordSubmissionError("write")
		f.svc.logger.Error(ctx, "error saving candidate",
			logger.String("form", f.id), logger.Error(err))
		return Confirmation{Title: TitleSubmitFailed, Message: MessageWriteFailed + err.Error()}, err
	}
	rec.ID = id
	rec.CreatedAt = f.svc.now()

	// The record is durable at this point; a cancelled request only cuts the
	// delay short.
	sleep(ctx, f.svc.notifyDelay)
	f.svc.notify(context.WithoutCancel(ctx), model.Notification{
		ID:        f.svc.newID(),
		Kind:      model.NotifySubmission,
		Candidate: &rec,
		CreatedAt: f.svc.now(),
	})

	metrics.RecordSubmission(string(rec.Classification))
	f.svc.logger.Info(ctx, "candidate evaluated",
		logger.String("form", f.id),
		logger.String("candidate", id),
		logger.Int("fit_score", rec.FitScore),
		logger.String("classification", string(rec.Classification)))

	score := rec.FitScore
	return Confirmation{
		Title:          TitleSubmitted,
		Message:        MessageSubmitted,
		Success:        true,
		Redirect:       "/dashboard",
		CandidateID:    id,
		FitScore:       &score,
		Classification: rec.Classification,
	}, nil
}

func (f *Form) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return false
	}
	f.submitting = true
	return true
}

func (f *Form) end() {
	f.mu.Lock()
	f.submitting = false
	f.mu.Unlock()
}

// IsAuthError reports whether err came from identity acquisition.
func IsAuthError(err error) bool {
	return errors.Is(err, identity.ErrAuth) || errors.Is(err, ErrAuthNotReady)
}
