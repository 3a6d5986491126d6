// Command quiz-pipeline runs the generation worker and the run reaper,
// selected by the SERVICES environment variable.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/bootstrap"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting quiz pipeline service",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"queue", cfg.Queue.GenerationQueue,
		"enabled_services", bootstrap.GetEnabledServices(&cfg))

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, logger, "database", db)
	if redisClient != nil {
		defer closeQuietly(ctx, logger, "redis", redisClient)
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	queueClient, err := bootstrap.ConnectQueue(cfg.Queue, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, logger, "queue", queueClient)

	metricsSink, err := bootstrap.InitMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return err
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Queue:       queueClient,
		Logger:      logger,
		MetricsSink: metricsSink,
	})
}

// initInfrastructure connects shared dependencies used by the service runtime.
// Redis is optional: the pipeline degrades to direct database reads for
// duplicate checks when the cache is unavailable or disabled.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if !cfg.Cache.Enabled {
		logger.InfoContext(ctx, "question text cache disabled, skipping redis")
		return db, nil, nil
	}

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return db, redisClient, nil
}

func closeQuietly(ctx context.Context, logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.ErrorContext(ctx, "close failed", "component", name, "error", err)
	}
}
