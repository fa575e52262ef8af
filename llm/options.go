package llm

import (
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
)

// EnvAPIKey is the generic credential variable consulted after the vendor-specific one.
const EnvAPIKey = "LLM_API_KEY"

// Options carries constructor arguments that are not generation parameters.
type Options struct {
	// APIKey is the explicit key and takes precedence over Config.APIKey and the environment.
	APIKey       string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	// MaxRetries is passed to vendor SDKs; negative keeps the SDK default.
	MaxRetries int
	Logger     *slog.Logger
	// Responses are canned answers for the mock provider.
	Responses []string
}

// Option configures Options.
type Option func(*Options)

// NewOptions returns Options with defaults and opts applied.
func NewOptions(opts ...Option) Options {
	o := Options{MaxRetries: -1, Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// WithAPIKey sets the explicit API key.
func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

// WithBaseURL overrides the vendor API base URL.
func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

// WithOrganization sets the vendor organization, where supported.
func WithOrganization(org string) Option {
	return func(o *Options) { o.Organization = org }
}

// WithHTTPClient sets the HTTP client used by vendor SDKs.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// WithMaxRetries sets the SDK retry budget.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithResponses sets canned responses for the mock provider.
func WithResponses(responses ...string) Option {
	return func(o *Options) { o.Responses = slices.Clone(responses) }
}

// ResolveAPIKey applies credential precedence: explicit, then cfgKey, then each variable in
// envVars in order, then EnvAPIKey. It returns "" when nothing is set.
func ResolveAPIKey(explicit, cfgKey string, envVars ...string) string {
	if k := strings.TrimSpace(explicit); k != "" {
		return k
	}
	if k := strings.TrimSpace(cfgKey); k != "" {
		return k
	}
	for _, name := range append(slices.Clone(envVars), EnvAPIKey) {
		if k := strings.TrimSpace(os.Getenv(name)); k != "" {
			return k
		}
	}
	return ""
}

// CredentialEnvVars returns envVars followed by EnvAPIKey, as consulted by ResolveAPIKey.
func CredentialEnvVars(envVars ...string) []string {
	return append(slices.Clone(envVars), EnvAPIKey)
}
