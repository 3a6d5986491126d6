package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeWorker runs the generation pipeline queue worker.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the generation-run reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// PipelineConfig contains the generation pipeline's policy knobs. The defaults
// mirror the behaviour the pipeline shipped with; they are configuration so
// operators can tune them, not because any other values have been validated.
type PipelineConfig struct {
	// LeaseDuration is how long a generation run holds its subject lease. It
	// must exceed the worst-case time for one batch (generation call plus
	// persistence) with margin for one retry.
	LeaseDuration time.Duration `env:"PIPELINE_LEASE_DURATION" envDefault:"120s"`

	// BatchSize is the fixed number of questions requested per batch.
	BatchSize int `env:"PIPELINE_BATCH_SIZE" envDefault:"5"`

	// DuplicateThreshold is the duplicate rate (duplicates over requested
	// count) at or above which a batch is regenerated.
	DuplicateThreshold float64 `env:"PIPELINE_DUPLICATE_THRESHOLD" envDefault:"0.4"`

	// MaxRegenerateAttempts bounds regeneration of a single batch.
	MaxRegenerateAttempts int `env:"PIPELINE_MAX_REGENERATE_ATTEMPTS" envDefault:"2"`

	// MaxRetries bounds retry of a failed batch before the run is released
	// with a partial question set.
	MaxRetries int `env:"PIPELINE_MAX_RETRIES" envDefault:"3"`

	// RetryBackoffBase is the base delay for exponential retry backoff
	// (base * 2^retryCount).
	RetryBackoffBase time.Duration `env:"PIPELINE_RETRY_BACKOFF_BASE" envDefault:"5s"`

	// Document sizing tiers: documents of at most SmallDocWords words yield
	// SmallDocQuestions questions, at most MediumDocWords yield
	// MediumDocQuestions, and anything longer yields LargeDocQuestions.
	SmallDocWords      int `env:"PIPELINE_SMALL_DOC_WORDS"      envDefault:"500"`
	MediumDocWords     int `env:"PIPELINE_MEDIUM_DOC_WORDS"     envDefault:"750"`
	SmallDocQuestions  int `env:"PIPELINE_SMALL_DOC_QUESTIONS"  envDefault:"10"`
	MediumDocQuestions int `env:"PIPELINE_MEDIUM_DOC_QUESTIONS" envDefault:"15"`
	LargeDocQuestions  int `env:"PIPELINE_LARGE_DOC_QUESTIONS"  envDefault:"20"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (p *PipelineConfig) Sanitize() {
	if p.LeaseDuration < 5*time.Second {
		p.LeaseDuration = 5 * time.Second
	}
	if p.BatchSize < 1 {
		p.BatchSize = 1
	}
	if p.DuplicateThreshold <= 0 || p.DuplicateThreshold > 1 {
		p.DuplicateThreshold = 0.4
	}
	if p.MaxRegenerateAttempts < 0 {
		p.MaxRegenerateAttempts = 0
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.RetryBackoffBase <= 0 {
		p.RetryBackoffBase = 5 * time.Second
	}
	if p.SmallDocWords < 1 {
		p.SmallDocWords = 500
	}
	if p.MediumDocWords <= p.SmallDocWords {
		p.MediumDocWords = p.SmallDocWords + 250
	}
	if p.SmallDocQuestions < 1 {
		p.SmallDocQuestions = 10
	}
	if p.MediumDocQuestions < 1 {
		p.MediumDocQuestions = 15
	}
	if p.LargeDocQuestions < 1 {
		p.LargeDocQuestions = 20
	}
}

// ReaperConfig contains run reaper service configuration.
type ReaperConfig struct {
	// Interval is how often the reaper sweeps for old completed runs.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// MaxRunAge is how long completed generation runs are kept.
	MaxRunAge time.Duration `env:"REAPER_MAX_RUN_AGE" envDefault:"168h"`

	// BatchSize bounds the number of rows removed per sweep.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.MaxRunAge < time.Hour {
		r.MaxRunAge = time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
}
