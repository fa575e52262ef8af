package teamcore

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/skosovsky/teamcore/config"
	"github.com/skosovsky/teamcore/container"
	"github.com/skosovsky/teamcore/llm"
	"github.com/skosovsky/teamcore/llm/providers"
	"github.com/skosovsky/teamcore/tools"
	"github.com/skosovsky/teamcore/tools/builtin"
)

// Service names registered by New.
const (
	ServiceConfig       = "config"
	ServiceLogger       = "logger"
	ServiceLLMProvider  = "llm_provider"
	ServiceToolRegistry = "tool_registry"
)

type options struct {
	logger      *slog.Logger
	providers   *llm.Registry
	parent      *container.Container
	tools       []tools.Tool
	builtinOpts []builtin.Option
	middlewares []tools.Middleware
	llmOpts     []llm.Option
}

// Option configures New.
type Option func(*options)

// WithLogger overrides the logger built from config.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithProviderRegistry resolves llm.provider in r instead of the process-wide registry.
func WithProviderRegistry(r *llm.Registry) Option {
	return func(o *options) {
		o.providers = r
	}
}

// WithParent makes the new container a child of parent.
func WithParent(parent *container.Container) Option {
	return func(o *options) {
		o.parent = parent
	}
}

// WithTools registers additional tools on the tool registry.
func WithTools(list ...tools.Tool) Option {
	return func(o *options) {
		o.tools = append(o.tools, list...)
	}
}

// WithBuiltinOptions passes options to the built-in tools.
func WithBuiltinOptions(opts ...builtin.Option) Option {
	return func(o *options) {
		o.builtinOpts = append(o.builtinOpts, opts...)
	}
}

// WithMiddleware replaces the default tool middlewares (tracing and logging).
func WithMiddleware(mws ...tools.Middleware) Option {
	return func(o *options) {
		o.middlewares = mws
	}
}

// WithProviderOptions passes constructor options to the provider (e.g. llm.WithHTTPClient).
func WithProviderOptions(opts ...llm.Option) Option {
	return func(o *options) {
		o.llmOpts = append(o.llmOpts, opts...)
	}
}

// New builds a container holding the configured services. The provider resolves its
// credentials lazily, so a missing API key surfaces on the first generation call.
func New(cfg config.Config, opts ...Option) (*container.Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = cfg.Log.NewLogger(os.Stderr)
	}
	if o.providers == nil {
		o.providers = providers.Default()
	}

	llmOpts := append([]llm.Option{llm.WithLogger(logger)}, cfg.LLM.ProviderOptions()...)
	provider, err := o.providers.Create(cfg.LLM.Provider, cfg.LLM.ProviderConfig(), append(llmOpts, o.llmOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("teamcore: create provider: %w", err)
	}

	reg, err := newToolRegistry(cfg.Tools, logger, o)
	if err != nil {
		return nil, err
	}

	var c *container.Container
	if o.parent != nil {
		c = o.parent.CreateChild()
	} else {
		c = container.New(container.WithLogger(logger))
	}
	c.RegisterSingleton(ServiceConfig, cfg).
		RegisterSingleton(ServiceLogger, logger).
		RegisterSingleton(ServiceLLMProvider, provider).
		RegisterSingleton(ServiceToolRegistry, reg)

	logger.Debug("teamcore ready",
		"provider", provider.Name(),
		"model", provider.Config().Model,
		"tools", reg.Len(),
	)
	return c, nil
}

func newToolRegistry(cfg config.ToolsConfig, logger *slog.Logger, o options) (*tools.Registry, error) {
	reg := tools.NewRegistry(append(cfg.RegistryOptions(), tools.WithLogger(logger))...)
	mws := o.middlewares
	if mws == nil {
		mws = []tools.Middleware{tools.WithTracing(nil), tools.WithLogging(logger)}
	}
	reg.Use(mws...)

	if cfg.Builtins {
		bopts := append([]builtin.Option{builtin.WithRoot(cfg.Root)}, o.builtinOpts...)
		if err := builtin.Register(reg, bopts...); err != nil {
			return nil, fmt.Errorf("teamcore: register builtin tools: %w", err)
		}
	}
	for _, t := range o.tools {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("teamcore: register tool: %w", err)
		}
	}
	return reg, nil
}
