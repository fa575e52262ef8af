package llm

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Config defaults.
const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
	DefaultTopP        = 1.0
	DefaultTimeout     = 60 * time.Second

	maxTemperature = 2.0
)

// Config holds generation parameters shared by all providers.
type Config struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	StopSequences    []string
	Timeout          time.Duration
	// APIKey is used when no explicit key is passed to the provider constructor.
	// When both are empty the provider falls back to environment variables.
	APIKey string
	// Extra carries vendor-specific parameters.
	Extra map[string]any
	// Tools lists functions the model may call.
	Tools []ToolDefinition
}

// ConfigOption overrides a Config field.
type ConfigOption func(*Config)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
		Timeout:     DefaultTimeout,
	}
}

// NewConfig returns DefaultConfig with opts applied.
func NewConfig(opts ...ConfigOption) Config {
	return DefaultConfig().With(opts...)
}

// With returns a copy of c with opts applied and values normalized. c is not modified.
func (c Config) With(opts ...ConfigOption) Config {
	out := c.clone()
	for _, opt := range opts {
		opt(&out)
	}
	out.Temperature = clampTemperature(out.Temperature)
	return out
}

func (c Config) clone() Config {
	out := c
	out.StopSequences = slices.Clone(c.StopSequences)
	out.Extra = maps.Clone(c.Extra)
	out.Tools = slices.Clone(c.Tools)
	return out
}

// Validate reports the first invalid field, wrapped with ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Model == "":
		return fmt.Errorf("%w: model must not be empty", ErrInvalidConfig)
	case c.MaxTokens <= 0:
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	case c.TopP < 0 || c.TopP > 1:
		return fmt.Errorf("%w: top_p must be within [0, 1], got %v", ErrInvalidConfig, c.TopP)
	case c.FrequencyPenalty < -2 || c.FrequencyPenalty > 2:
		return fmt.Errorf("%w: frequency_penalty must be within [-2, 2], got %v", ErrInvalidConfig, c.FrequencyPenalty)
	case c.PresencePenalty < -2 || c.PresencePenalty > 2:
		return fmt.Errorf("%w: presence_penalty must be within [-2, 2], got %v", ErrInvalidConfig, c.PresencePenalty)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func clampTemperature(t float64) float64 {
	return min(max(t, 0), maxTemperature)
}

// WithModel sets the model name.
func WithModel(model string) ConfigOption {
	return func(c *Config) { c.Model = model }
}

// WithTemperature sets the sampling temperature, clamped to [0, 2].
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) { c.Temperature = clampTemperature(t) }
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTopP sets nucleus sampling probability mass.
func WithTopP(p float64) ConfigOption {
	return func(c *Config) { c.TopP = p }
}

// WithFrequencyPenalty sets the frequency penalty.
func WithFrequencyPenalty(p float64) ConfigOption {
	return func(c *Config) { c.FrequencyPenalty = p }
}

// WithPresencePenalty sets the presence penalty.
func WithPresencePenalty(p float64) ConfigOption {
	return func(c *Config) { c.PresencePenalty = p }
}

// WithStopSequences sets the stop sequences, replacing any existing ones.
func WithStopSequences(stop ...string) ConfigOption {
	return func(c *Config) { c.StopSequences = slices.Clone(stop) }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.Timeout = d }
}

// WithExtra sets a vendor-specific parameter.
func WithExtra(key string, value any) ConfigOption {
	return func(c *Config) {
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = value
	}
}

// WithTools makes the given functions available to the model.
func WithTools(defs ...ToolDefinition) ConfigOption {
	return func(c *Config) { c.Tools = slices.Clone(defs) }
}

// Base holds a provider's name and configuration behind a lock. Providers embed it and
// call Init from their constructor.
type Base struct {
	name string
	mu   sync.RWMutex
	cfg  Config
}

// Init sets the provider name and initial configuration.
func (b *Base) Init(name string, cfg Config) {
	b.name = name
	b.cfg = cfg.With()
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// Config returns a copy of the current configuration.
func (b *Base) Config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.clone()
}

// UpdateConfig applies opts to the stored configuration.
func (b *Base) UpdateConfig(opts ...ConfigOption) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = b.cfg.With(opts...)
}

// CallConfig returns the stored configuration with per-call opts applied.
func (b *Base) CallConfig(opts ...ConfigOption) Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.With(opts...)
}
