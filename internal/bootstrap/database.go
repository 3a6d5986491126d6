package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/migrate"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

const connectTimeout = 5 * time.Second

// ConnectDB opens the Postgres pool and verifies it with a ping.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)

	if err := verifyConn("database", db.PingContext, db.Close); err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

// postgresDSN builds the connection string through url.URL so credentials
// with special characters survive intact.
func postgresDSN(cfg config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// ConnectRedis dials Redis from either a redis:// URL or a bare host:port
// plus the separate password/db settings.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	uri := strings.TrimSpace(cfg.RedisConfig.URI)
	if uri == "" {
		return nil, errors.New("redis configuration requires a URI")
	}

	opts := &redis.Options{
		Addr:     uri,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	}
	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := verifyConn("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, client.Close); err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "addr", opts.Addr)
	}
	return client, nil
}

// verifyConn pings the freshly opened connection and closes it on failure so
// callers never receive a handle that was never reachable.
func verifyConn(what string, ping func(context.Context) error, closeFn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pingErr := ping(ctx)
	if pingErr == nil {
		return nil
	}
	if closeErr := closeFn(); closeErr != nil {
		pingErr = errors.Join(pingErr, fmt.Errorf("close %s: %w", what, closeErr))
	}
	return fmt.Errorf("ping %s: %w", what, pingErr)
}

// RunMigrations applies pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
