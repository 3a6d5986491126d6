package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"quizpipeline"`
	Password string `env:"PASSWORD"                envDefault:"quizpipeline"`
	Name     string `env:"NAME"                    envDefault:"quizpipeline"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	// Connection pool limits. The worker holds few concurrent transactions,
	// so the defaults are modest.
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains configuration for the existing-question text cache.
type CacheConfig struct {
	// Enabled controls whether the Redis read-through cache is used at all.
	// When disabled the duplicate filter always reads from Postgres.
	Enabled bool `env:"CACHE_ENABLED" envDefault:"true"`

	// QuestionTTL is the TTL for cached per-subject question text lists.
	QuestionTTL time.Duration `env:"CACHE_QUESTION_TTL" envDefault:"10m"`
}
