// Package config loads teamcore settings from defaults, an optional yaml file, a .env file
// and TEAMCORE_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/skosovsky/teamcore/llm"
	"github.com/skosovsky/teamcore/tools"
)

// Defaults for Load.
const (
	DefaultFile      = "teamcore.yaml"
	DefaultEnvPrefix = "TEAMCORE_"
	DefaultProvider  = "openai"
)

// Config is the root configuration.
type Config struct {
	LLM   LLMConfig   `koanf:"llm"`
	Tools ToolsConfig `koanf:"tools"`
	Log   LogConfig   `koanf:"log"`
}

// LLMConfig selects and parameterizes the LLM provider.
type LLMConfig struct {
	Provider         string        `koanf:"provider"`
	Model            string        `koanf:"model"`
	Temperature      float64       `koanf:"temperature"`
	MaxTokens        int           `koanf:"max_tokens"`
	TopP             float64       `koanf:"top_p"`
	FrequencyPenalty float64       `koanf:"frequency_penalty"`
	PresencePenalty  float64       `koanf:"presence_penalty"`
	Stop             []string      `koanf:"stop"`
	Timeout          time.Duration `koanf:"timeout"`
	// APIKey may reference environment variables as ${VAR}.
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	// Responses are the canned answers of the mock provider.
	Responses []string `koanf:"responses"`
}

// ToolsConfig configures the tool registry.
type ToolsConfig struct {
	// Builtins registers the built-in coding tools.
	Builtins       bool          `koanf:"builtins"`
	Root           string        `koanf:"root"`
	DefaultTimeout time.Duration `koanf:"default_timeout"`
	MaxConcurrency int           `koanf:"max_concurrency"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is text or json.
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    DefaultProvider,
			Model:       llm.DefaultModel,
			Temperature: llm.DefaultTemperature,
			MaxTokens:   llm.DefaultMaxTokens,
			TopP:        llm.DefaultTopP,
			Timeout:     llm.DefaultTimeout,
		},
		Tools: ToolsConfig{
			Builtins:       true,
			Root:           ".",
			DefaultTimeout: tools.DefaultTimeout,
			MaxConcurrency: 10,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

type loadOptions struct {
	file         string
	fileRequired bool
	envPrefix    string
	dotEnv       []string
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFile reads path instead of teamcore.yaml. A missing explicit file is an error.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
		o.fileRequired = path != ""
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// WithDotEnv loads the given .env files instead of ./.env. Missing files are skipped.
func WithDotEnv(paths ...string) LoadOption {
	return func(o *loadOptions) {
		o.dotEnv = paths
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load builds the configuration. Environment keys map to nested fields with "__", e.g.
// TEAMCORE_LLM__MAX_TOKENS sets llm.max_tokens.
func Load(opts ...LoadOption) (Config, error) {
	o := loadOptions{file: DefaultFile, envPrefix: DefaultEnvPrefix, dotEnv: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	for _, p := range o.dotEnv {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", p, err)
		}
	}

	k := koanf.New(".")
	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			if o.fileRequired || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: load %s: %w", o.file, err)
			}
		}
	}
	if err := k.Load(env.Provider(o.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, o.envPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.LLM.APIKey = substituteEnvVars(cfg.LLM.APIKey)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks values that the consuming packages would otherwise reject later.
func (c Config) Validate() error {
	if strings.TrimSpace(c.LLM.Provider) == "" {
		return errors.New("config: llm.provider must not be empty")
	}
	if err := c.LLM.ProviderConfig().Validate(); err != nil {
		return fmt.Errorf("config: llm: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ProviderConfig converts c into generation parameters.
func (c LLMConfig) ProviderConfig() llm.Config {
	return llm.NewConfig(
		llm.WithModel(c.Model),
		llm.WithTemperature(c.Temperature),
		llm.WithMaxTokens(c.MaxTokens),
		llm.WithTopP(c.TopP),
		llm.WithFrequencyPenalty(c.FrequencyPenalty),
		llm.WithPresencePenalty(c.PresencePenalty),
		llm.WithStopSequences(c.Stop...),
		llm.WithTimeout(c.Timeout),
		func(cfg *llm.Config) { cfg.APIKey = c.APIKey },
	)
}

// ProviderOptions returns the constructor options implied by c.
func (c LLMConfig) ProviderOptions() []llm.Option {
	var opts []llm.Option
	if c.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(c.BaseURL))
	}
	if len(c.Responses) > 0 {
		opts = append(opts, llm.WithResponses(c.Responses...))
	}
	return opts
}

// RegistryOptions returns the tool registry options implied by c.
func (c ToolsConfig) RegistryOptions() []tools.RegistryOption {
	return []tools.RegistryOption{
		tools.WithDefaultTimeout(c.DefaultTimeout),
		tools.WithMaxConcurrency(c.MaxConcurrency),
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return l, nil
}

// NewLogger builds a logger writing to w in the configured format and level.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
