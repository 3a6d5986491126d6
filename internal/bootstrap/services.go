package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/adapters/queue"
	"github.com/target/quiz-pipeline/internal/adapters/reaper"
	"github.com/target/quiz-pipeline/internal/adapters/worker"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/data"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
)

const shutdownWaitTimeout = 30 * time.Second

// ServiceOrchestrationConfig carries the shared resources every service mode
// draws from.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Queue       *queue.Client
	Logger      *slog.Logger
	MetricsSink statsd.Sink
}

// backgroundService is one startable component of the process.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// RunServicesWithShutdown starts every enabled service and blocks until a
// termination signal arrives or a service fails. On signal it cancels the
// service context and waits up to shutdownWaitTimeout for everything to
// drain before giving up.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(signalCtx)
	for _, svc := range allServices(cfg, logger) {
		if !enabled[svc.mode] {
			continue
		}
		group.Go(func() error {
			logger.InfoContext(ctx, "background service started",
				"service", svc.name, "mode", svc.mode)
			if runErr := svc.start(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("%s failed: %w", svc.name, runErr)
			}
			logger.InfoContext(ctx, "background service stopped", "service", svc.name)
			return nil
		})
	}

	finished := make(chan error, 1)
	go func() { finished <- group.Wait() }()

	select {
	case runErr := <-finished:
		if runErr != nil {
			logger.Error("service error", "error", runErr)
		}
		return runErr
	case <-signalCtx.Done():
		logger.Info("shutting down services...")
		select {
		case runErr := <-finished:
			return runErr
		case <-time.After(shutdownWaitTimeout):
			logger.Warn("timeout waiting for services to stop")
			return nil
		}
	}
}

func allServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeWorker,
			name: "generation worker",
			start: func(ctx context.Context) error {
				var cache core.CacheRepository
				if cfg.RedisClient != nil && cfg.Config.Cache.Enabled {
					cache = data.NewRedisCacheRepo(cfg.RedisClient)
				}

				runner, err := worker.NewRunner(worker.RunnerOptions{
					DB:      cfg.DB,
					Queue:   cfg.Queue,
					Config:  cfg.Config,
					Logger:  logger,
					Cache:   cache,
					Metrics: cfg.MetricsSink,
				})
				if err != nil {
					return fmt.Errorf("create worker runner: %w", err)
				}
				return runner.Run(ctx)
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				runner, err := reaper.NewRunner(reaper.RunnerOptions{
					DB:      cfg.DB,
					Config:  cfg.Config.Reaper,
					Logger:  logger,
					Metrics: cfg.MetricsSink,
				})
				if err != nil {
					return fmt.Errorf("create reaper runner: %w", err)
				}
				return runner.Run(ctx)
			},
		},
	}
}
