// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/fitscore/internal/adapters/identity"
	"github.com/okian/fitscore/internal/adapters/repository"
	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	OpenForm(ctx context.Context, token string) *service.Form
	Form(id string) (*service.Form, error)
	RosterFrame(ctx context.Context, filter string) roster.Frame
	Watch(ctx context.Context, filter string, onFrame func(roster.Frame)) (*roster.View, repository.Subscription, error)
	GenerateReport(ctx context.Context) (service.Confirmation, *model.Report, error)
	StatsProvider
}

var _ Dependencies = (*service.Service)(nil)

const defaultRequestTimeout = 30 * time.Second

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	origins []string
	timeout time.Duration
	log     logger.Logger

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	formsHandler     *FormsHandler
	candidateHandler *CandidatesHandler
	reportsHandler   *ReportsHandler
	dashboardHandler *dashboardHandler
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithRequestTimeout bounds non-streaming requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		origins: []string{"*"},
		timeout: defaultRequestTimeout,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.formsHandler = NewFormsHandler(deps)
	s.candidateHandler = NewCandidatesHandler(deps, s.log.Named("stream"))
	s.reportsHandler = NewReportsHandler(deps)
	s.dashboardHandler = newDashboardHandler()
	return s
}

// Router returns a chi router carrying the common middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(s.log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	return r
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/dashboard", s.dashboardHandler.HandleDashboard)

	// The stream outlives the request timeout.
	r.Get("/api/candidates/stream", MetricsMiddleware(s.candidateHandler.HandleStream, "candidates_stream"))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
		r.Get("/api/questionnaire", MetricsMiddleware(HandleQuestionnaire, "questionnaire"))
		r.Post("/api/forms", MetricsMiddleware(s.formsHandler.HandleOpen, "forms_open"))
		r.Get("/api/forms/{formID}", MetricsMiddleware(s.formsHandler.HandleState, "forms_state"))
		r.Post("/api/forms/{formID}/submit", MetricsMiddleware(s.formsHandler.HandleSubmit, "forms_submit"))
		r.Get("/api/candidates", MetricsMiddleware(s.candidateHandler.HandleList, "candidates"))
		r.Post("/api/candidates/stream/{streamID}/filter", MetricsMiddleware(s.candidateHandler.HandleFilter, "candidates_filter"))
		r.Post("/api/reports", MetricsMiddleware(s.reportsHandler.HandleGenerate, "reports"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a service error to its status and code. conf carries the
// user-facing dialog when the service produced one.
func writeFailure(w http.ResponseWriter, conf service.Confirmation, err error) {
	status, code := statusFor(err)
	msg := conf.Message
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, Title: conf.Title})
}

func statusFor(err error) (int, string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrAuthNotReady):
		return http.StatusServiceUnavailable, "auth_error"
	case errors.Is(err, identity.ErrAuth):
		return http.StatusUnauthorized, "auth_error"
	case errors.Is(err, repository.ErrWrite):
		return http.StatusBadGateway, "write_error"
	case errors.Is(err, repository.ErrRead):
		return http.StatusBadGateway, "read_error"
	case errors.Is(err, service.ErrSubmitInFlight), errors.Is(err, service.ErrReportInFlight):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrFormNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
