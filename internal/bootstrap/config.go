package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/quiz-pipeline/config"
)

// InitLogger installs a JSON slog logger as the process default. LOG_LEVEL
// (debug, info, warn, error) overrides the info default; it is read directly
// from the environment because logging must exist before config parsing.
func InitLogger() *slog.Logger {
	level := slog.LevelInfo
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			level = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads configuration from the environment, preceded by a .env
// file when one exists (local development). A missing .env is not an error.
func LoadConfig() (config.AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// serviceNames maps service modes to the names shown in logs and errors.
var serviceNames = map[config.ServiceMode]string{
	config.ServiceModeWorker: "worker",
	config.ServiceModeReaper: "reaper",
}

// ValidateServiceConfig fails fast when SERVICES parses to nothing runnable.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	if _, err := cfg.GetEnabledServices(); err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if len(GetEnabledServices(cfg)) == 0 {
		return fmt.Errorf("no services enabled, SERVICES=%q", cfg.Services)
	}
	return nil
}

// GetEnabledServices returns the enabled service names, sorted.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return nil
	}
	modes, err := cfg.GetEnabledServices()
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(modes))
	for mode, on := range modes {
		if !on {
			continue
		}
		if name, known := serviceNames[mode]; known {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
