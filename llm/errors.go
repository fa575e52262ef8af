package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for llm. Use errors.Is to check; the typed errors below unwrap to them.
var (
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrProviderTimeout    = errors.New("provider timeout")
	ErrInvalidConfig      = errors.New("invalid llm config")
)

// UnknownProviderError is returned by Registry.Create for a name with no registered factory.
type UnknownProviderError struct {
	Name       string
	Registered []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("llm: unknown provider %q (registered: %s)", e.Name, strings.Join(e.Registered, ", "))
}

func (e *UnknownProviderError) Unwrap() error { return ErrUnknownProvider }

// MissingCredentialsError is returned by the first real call of a provider that could not
// resolve an API key from any source.
type MissingCredentialsError struct {
	Provider string
	EnvVars  []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("[%s] no api key: pass one explicitly, set Config.APIKey or export one of %s",
		e.Provider, strings.Join(e.EnvVars, ", "))
}

func (e *MissingCredentialsError) Unwrap() error { return ErrMissingCredentials }

// ProviderError is a failed remote call. StatusCode is the HTTP status reported by the
// vendor, or 0 when the request never got a response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TimeoutError is returned when a call exceeds Config.Timeout or the caller's deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("[%s] request exceeded timeout of %s", e.Provider, e.Timeout)
	}
	return fmt.Sprintf("[%s] request deadline exceeded", e.Provider)
}

// Unwrap exposes both ErrProviderTimeout and the underlying cause.
func (e *TimeoutError) Unwrap() []error { return []error{ErrProviderTimeout, e.Err} }

// IsProviderError returns true if err is or wraps a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// WithCallTimeout derives a context bounded by cfg.Timeout. A zero timeout keeps ctx as is.
func WithCallTimeout(ctx context.Context, cfg Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}

// WrapCallError converts a vendor call error into *TimeoutError when the deadline was
// exceeded, otherwise into *ProviderError with the given status.
func WrapCallError(provider string, cfg Config, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: provider, Timeout: cfg.Timeout, Err: err}
	}
	return &ProviderError{Provider: provider, StatusCode: status, Message: err.Error(), Err: err}
}

// WrapContextError is WrapCallError for SDK errors that may not wrap the context error:
// an expired deadline on ctx is reported as a timeout either way.
func WrapContextError(ctx context.Context, provider string, cfg Config, status int, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return WrapCallError(provider, cfg, status, err)
}
