package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/internet-id/verifyq/config"
	"github.com/internet-id/verifyq/internal/adapters/chain"
	"github.com/internet-id/verifyq/internal/adapters/jobrunner"
	"github.com/internet-id/verifyq/internal/adapters/manifest"
	"github.com/internet-id/verifyq/internal/adapters/reaper"
	"github.com/internet-id/verifyq/internal/adapters/verifier"
	"github.com/internet-id/verifyq/internal/core"
	"github.com/internet-id/verifyq/internal/data"
	domainjob "github.com/internet-id/verifyq/internal/domain/job"
	httpx "github.com/internet-id/verifyq/internal/http"
	"github.com/internet-id/verifyq/internal/observability/metrics"
	"github.com/internet-id/verifyq/internal/service"
)

const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs           *service.QueueService
	Runner         *jobrunner.Runner
	Reaper         *reaper.Reaper
	MetricsHandler http.Handler
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories, adapters, and services from configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("config and database are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: logger})

	var queue core.QueueBackend
	if deps.RedisClient != nil {
		queue = data.NewRedisQueue(deps.RedisClient, data.RedisQueueConfig{})
	}

	httpClient := &http.Client{Timeout: cfg.Verifier.RequestTimeout}
	fetcher := manifest.NewHTTPFetcher(manifest.FetcherOptions{
		Client:   httpClient,
		Gateway:  cfg.Verifier.IPFSGateway,
		MaxBytes: cfg.Verifier.ManifestMaxBytes,
		Logger:   logger,
	})
	resolver, err := chain.NewHTTPResolver(chain.ResolverOptions{
		BaseURL: cfg.Verifier.ChainBaseURL,
		Client:  httpClient,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build chain resolver: %w", err)
	}

	work, err := verifier.New(verifier.Options{
		Manifests: fetcher,
		Chain:     resolver,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build verifier: %w", err)
	}

	policy := domainjob.RetryPolicy{
		Base:        cfg.Queue.RetryBase,
		Cap:         cfg.Queue.RetryCap,
		MaxAttempts: cfg.Queue.MaxAttempts,
	}

	queueSvc, err := service.NewQueueService(service.QueueServiceOptions{
		Repo:        repo,
		Work:        work,
		Queue:       queue,
		RetryPolicy: policy,
		HealthTTL:   cfg.Queue.HealthTTL,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build queue service: %w", err)
	}

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	container := ServiceContainer{
		Jobs:           queueSvc,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	if queue == nil {
		if cfg.IsWorkerEnabled() || cfg.IsReaperEnabled() {
			logger.Warn("worker and reaper require a queue backend, skipping")
		}
		return container, nil
	}

	if cfg.IsWorkerEnabled() {
		runner, runnerErr := jobrunner.NewRunner(jobrunner.RunnerOptions{
			Repo:        repo,
			Queue:       queue,
			Work:        work,
			RetryPolicy: policy,
			Workers:     cfg.Worker.Concurrency,
			DequeueWait: cfg.Worker.DequeueWait,
			Logger:      logger,
			Metrics:     jobMetrics,
		})
		if runnerErr != nil {
			return ServiceContainer{}, fmt.Errorf("build job runner: %w", runnerErr)
		}
		container.Runner = runner
	}

	if cfg.IsReaperEnabled() {
		jobReaper, reaperErr := reaper.New(reaper.Options{
			Store:     repo,
			Queue:     queue,
			Interval:  cfg.Reaper.Interval,
			StaleAge:  cfg.Reaper.StaleAge,
			BatchSize: cfg.Reaper.BatchSize,
			Logger:    logger,
		})
		if reaperErr != nil {
			return ServiceContainer{}, fmt.Errorf("build reaper: %w", reaperErr)
		}
		container.Reaper = jobReaper
	}

	return container, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.Services.Jobs.Start(serviceCtx); err != nil {
		return fmt.Errorf("start queue service: %w", err)
	}
	defer cfg.Services.Jobs.Stop()

	errCh := make(chan error, 3)
	backgrounds := startBackgroundServices(serviceCtx, cfg, errCh)

	var httpServer *http.Server
	if cfg.Config.IsHTTPServerEnabled() {
		httpServer = startHTTPServer(cfg, errCh, logger)
	}

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		httpCfg:     cfg.Config.HTTP,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

func startBackgroundServices(
	ctx context.Context,
	cfg *ServiceOrchestrationConfig,
	errCh chan<- error,
) []backgroundServiceHandle {
	launch := func(name string, run func(context.Context) error) backgroundServiceHandle {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case errCh <- fmt.Errorf("%s failed: %w", name, err):
				default:
				}
			}
		}()
		return backgroundServiceHandle{name: name, done: done}
	}

	var handles []backgroundServiceHandle
	if cfg.Services.Runner != nil {
		handles = append(handles, launch("job runner", cfg.Services.Runner.Run))
	}
	if cfg.Services.Reaper != nil {
		handles = append(handles, launch("reaper", cfg.Services.Reaper.Run))
	}
	return handles
}

func startHTTPServer(cfg *ServiceOrchestrationConfig, errCh chan<- error, logger *slog.Logger) *http.Server {
	router := httpx.NewRouter(httpx.RouterServices{
		Jobs:    cfg.Services.Jobs,
		Metrics: cfg.Services.MetricsHandler,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:              cfg.Config.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Config.HTTP.ReadHeaderTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("http server failed: %w", err):
			default:
			}
		}
	}()

	return server
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	httpCfg     config.HTTPConfig
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.httpCfg.ShutdownTimeout)
		defer cancel()

		if err := cfg.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		cfg.logger.Info("http server stopped")
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
