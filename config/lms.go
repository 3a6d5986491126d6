package config

import (
	"strings"
	"time"
)

// LMSConfig contains configuration for the LMS document source, the external
// system that owns subjects and their source documents.
type LMSConfig struct {
	// BaseURL is the root of the LMS HTTP API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Timeout bounds a single document fetch.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to LMS configuration values.
func (c *LMSConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
