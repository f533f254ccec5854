package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/fitscore/internal/adapters/http/api"
	"github.com/okian/fitscore/internal/adapters/http/site"
	"github.com/okian/fitscore/internal/adapters/http/swagger"
	"github.com/okian/fitscore/internal/adapters/identity"
	"github.com/okian/fitscore/internal/adapters/notify"
	"github.com/okian/fitscore/internal/adapters/repository"
	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/config"
	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	ephemeralSecretBytes      = 32
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// setup initializes logging and loads configuration.
func setup(ctx context.Context) (*config.Config, logger.Logger, error) {
	if err := logger.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// newDispatcher always logs notifications and also publishes them to Kafka when
// brokers are configured.
func newDispatcher(ctx context.Context, cfg *config.Config, log logger.Logger) notify.Sink {
	sinks := notify.Fanout{notify.NewLogSink(log.Named("notify"))}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		k, err := notify.NewKafkaSink(brokers, cfg.KafkaTopic)
		if err != nil {
			log.Error(ctx, "kafka sink disabled", logger.Error(err))
			return sinks
		}
		log.Info(ctx, "publishing notifications to kafka", logger.String("topic", cfg.KafkaTopic))
		sinks = append(sinks, k)
	}
	return sinks
}

func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, repository.Store, notify.Sink) {
	store := repository.Open(ctx, cfg.StoreConfig, repository.WithLogger(log.Named("store")))
	provider := identity.NewJWTProvider(authSecret(ctx, cfg, log),
		identity.WithTTL(cfg.IdentityTTL()),
		identity.WithLogger(log.Named("identity")))
	dispatcher := newDispatcher(ctx, cfg, log)

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithIdentity(provider),
		service.WithDispatcher(dispatcher),
		service.WithAppID(cfg.AppID),
		service.WithNotifyDelay(cfg.NotifyDelay()),
		service.WithReportDelay(cfg.ReportDelay()),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithMaxForms(cfg.MaxForms),
	)
	return svc, store, dispatcher
}

// authSecret returns the configured signing secret or, when none is set, a
// random one for this process. Identity cookies then do not survive a restart.
func authSecret(ctx context.Context, cfg *config.Config, log logger.Logger) string {
	if cfg.AuthSecret != "" {
		return cfg.AuthSecret
	}
	buf := make([]byte, ephemeralSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		log.Error(ctx, "cannot generate auth secret; anonymous sign-in will fail", logger.Error(err))
		return ""
	}
	log.Warn(ctx, "auth_secret is empty; using an ephemeral secret, identities reset on restart")
	return hex.EncodeToString(buf)
}

func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) http.Handler {
	apiServer := api.NewServer(svc,
		api.WithCORSOrigins(cfg.Origins()),
		api.WithLogger(log.Named("http")))
	r := apiServer.Router()
	site.Register(ctx, r)
	swagger.Register(ctx, r)
	apiServer.Register(ctx, r)
	return r
}

func serve(ctx context.Context) error {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, store, dispatcher := newService(ctx, cfg, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     newHandler(ctx, cfg, svc, log),
		ReadTimeout: readTimeout,
		// No WriteTimeout: roster streams stay open until the client leaves.
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
		log.Error(ctx, "HTTP server failed", logger.Error(err))
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service stop failed", logger.Error(err))
	}
	if err := dispatcher.Close(); err != nil {
		log.Error(ctx, "notification sink close failed", logger.Error(err))
	}
	if err := store.Close(); err != nil {
		log.Error(ctx, "store close failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return err
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that are not updated on the hot path.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.Stats(ctx)

	if formsActive, ok := stats["formsActive"].(int); ok {
		metrics.UpdateFormsActive(formsActive)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
