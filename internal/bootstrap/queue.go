package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/adapters/queue"
	"github.com/target/quiz-pipeline/internal/observability/statsd"
)

// ConnectQueue dials RabbitMQ and declares the generation queue.
func ConnectQueue(cfg config.QueueConfig, logger *slog.Logger) (*queue.Client, error) {
	client, err := queue.Dial(queue.ClientOptions{
		URL:       cfg.URL,
		QueueName: cfg.GenerationQueue,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	if logger != nil {
		logger.Info("queue connected", "queue", cfg.GenerationQueue)
	}
	return client, nil
}

// InitMetrics builds the StatsD sink from configuration. Returns nil when
// metrics are disabled; every emitter treats a nil sink as a no-op.
func InitMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "quiz_pipeline",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return client, nil
}
