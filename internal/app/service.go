// Package service wires the scoring engine, the document store, the identity
// provider and the notification pipeline behind the operations the HTTP API
// exposes.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fitscore/internal/adapters/identity"
	eventqueue "github.com/okian/fitscore/internal/adapters/mq/queue"
	workerpool "github.com/okian/fitscore/internal/adapters/mq/worker"
	"github.com/okian/fitscore/internal/adapters/notify"
	"github.com/okian/fitscore/internal/adapters/repository"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

// Default service configuration.
const (
	defaultNotifyDelay = time.Second
	defaultReportDelay = 1500 * time.Millisecond
	defaultQueueSize   = 1024
	defaultWorkerCount = 2
	defaultMaxForms    = 10000
)

// Service implements the API dependencies of the FitScore pages.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	identities identity.Provider
	dispatcher workerpool.Dispatcher
	queue      eventqueue.Queue
	pool       *workerpool.Pool
	forms      *FormRegistry

	appID       string
	notifyDelay time.Duration
	reportDelay time.Duration
	queueSize   int
	workerCount int
	maxForms    int

	reporting atomic.Bool
	started   bool
	startedAt time.Time

	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithIdentity sets the identity provider.
func WithIdentity(p identity.Provider) Option {
	return func(svc *Service) {
		if p != nil {
			svc.identities = p
		}
	}
}

// WithDispatcher sets where queued notifications are delivered.
func WithDispatcher(d workerpool.Dispatcher) Option {
	return func(svc *Service) {
		if d != nil {
			svc.dispatcher = d
		}
	}
}

// WithAppID sets the collection namespace.
func WithAppID(id string) Option {
	return func(svc *Service) {
		if id != "" {
			svc.appID = id
		}
	}
}

// WithNotifyDelay sets the pause between a successful write and the
// confirmation. Zero disables it.
func WithNotifyDelay(d time.Duration) Option {
	return func(svc *Service) {
		if d >= 0 {
			svc.notifyDelay = d
		}
	}
}

// WithReportDelay sets the simulated report generation time. Zero disables it.
func WithReportDelay(d time.Duration) Option {
	return func(svc *Service) {
		if d >= 0 {
			svc.reportDelay = d
		}
	}
}

// WithQueueSize sets the notification queue capacity.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(svc *Service) {
		if count > 0 {
			svc.workerCount = count
		}
	}
}

// WithMaxForms bounds the number of live form instances.
func WithMaxForms(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxForms = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New constructs a Service. Without a store it uses repository.Unconfigured;
// without an identity provider every sign-in fails.
func New(opts ...Option) *Service {
	s := &Service{
		appID:       repository.DefaultAppID,
		notifyDelay: defaultNotifyDelay,
		reportDelay: defaultReportDelay,
		queueSize:   defaultQueueSize,
		workerCount: defaultWorkerCount,
		maxForms:    defaultMaxForms,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.Unconfigured{}
	}
	if s.identities == nil {
		s.identities = identity.NewJWTProvider("")
	}
	if s.dispatcher == nil {
		s.dispatcher = notify.NewLogSink(s.logger.Named("notify"))
	}
	s.forms = NewFormRegistry(s.maxForms)
	return s
}

// Start creates the notification queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.dispatcher,
		workerpool.WithLogger(s.logger.Named("worker")))
	// Workers outlive request contexts; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "fitscore service started",
		logger.String("app_id", s.appID),
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("notify_delay", s.notifyDelay),
		logger.Duration("report_delay", s.reportDelay))
	return nil
}

// Stop drains pending notifications and stops the workers. The store is owned
// by the caller and is not closed.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping fitscore service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "fitscore service stopped")
	return err
}

// AppID returns the configured namespace.
func (s *Service) AppID() string { return s.appID }

// CollectionPath returns the candidates collection of the namespace.
func (s *Service) CollectionPath() string { return repository.CollectionPath(s.appID) }

// Store returns the document store.
func (s *Service) Store() repository.Store { return s.store }

// notify enqueues n. Failures are logged and never reach the caller.
func (s *Service) notify(ctx context.Context, n model.Notification) { //nolint:gocritic // hugeParam: Notification is passed by value for channel semantics
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		s.logger.Warn(ctx, "notification dropped", logger.String("kind", string(n.Kind)), logger.Error(ErrNotStarted))
		return
	}
	if err := q.Enqueue(ctx, n); err != nil {
		s.logger.Warn(ctx, "notification dropped", logger.String("kind", string(n.Kind)), logger.Error(err))
	}
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"appId":       s.appID,
		"collection":  s.CollectionPath(),
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"formsActive": s.forms.Len(),
		"maxForms":    s.maxForms,
		"reporting":   s.reporting.Load(),
	}
	if _, ok := s.store.(repository.Unconfigured); ok {
		stats["persistence"] = "unconfigured"
	} else {
		stats["persistence"] = "configured"
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["uptimeSeconds"] = int(s.now().Sub(s.startedAt).Seconds())
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	return stats
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
