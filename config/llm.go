package config

import "strings"

// LLMConfig contains configuration for the generation collaborator
// (an OpenAI-compatible chat-completions endpoint).
type LLMConfig struct {
	// BaseURL overrides the API endpoint. Empty means the SDK default.
	BaseURL string `env:"BASE_URL"`

	// APIKey authenticates requests to the endpoint.
	APIKey string `env:"API_KEY"`

	// Model is the model identifier passed on every completion request.
	Model string `env:"MODEL" envDefault:"gpt-4o"`

	// Temperature controls sampling randomness for generation requests.
	Temperature float32 `env:"TEMPERATURE" envDefault:"0.7"`
}

// Sanitize applies guardrails to LLM configuration values.
func (c *LLMConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.Temperature < 0 {
		c.Temperature = 0
	}
}
