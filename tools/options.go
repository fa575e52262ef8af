package tools

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// toolOptions hold optional tool settings.
type toolOptions struct {
	name         string
	description  string
	timeout      time.Duration
	categories   []string
	version      string
	dangerous    bool
	allowUnknown bool
}

// ToolOption configures a tool (e.g. WithName, WithTimeout).
type ToolOption func(*toolOptions)

func applyToolOptions(opts []ToolOption) toolOptions {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithName sets the tool name. Required for NewFuncTool with an anonymous function.
func WithName(name string) ToolOption {
	return func(o *toolOptions) {
		o.name = name
	}
}

// WithDescription sets the tool description. Only the first line is kept.
func WithDescription(desc string) ToolOption {
	return func(o *toolOptions) {
		o.description = desc
	}
}

// WithTimeout sets a per-tool timeout that overrides the registry default.
func WithTimeout(d time.Duration) ToolOption {
	return func(o *toolOptions) {
		o.timeout = d
	}
}

// WithCategories files the tool under categories when it is registered.
func WithCategories(categories ...string) ToolOption {
	return func(o *toolOptions) {
		o.categories = slices.Clone(categories)
	}
}

// WithVersion sets the tool version.
func WithVersion(version string) ToolOption {
	return func(o *toolOptions) {
		o.version = version
	}
}

// WithDangerous marks the tool as dangerous (an orchestrator may require confirmation).
func WithDangerous() ToolOption {
	return func(o *toolOptions) {
		o.dangerous = true
	}
}

// WithAllowUnknownArgs makes the tool drop undeclared arguments instead of rejecting them.
func WithAllowUnknownArgs() ToolOption {
	return func(o *toolOptions) {
		o.allowUnknown = true
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	recoverPanics  bool
	logger         *slog.Logger
	onBefore       func(ctx context.Context, name string, args Args)
	onAfter        func(ctx context.Context, name string, res Result, err error, dur time.Duration)
}

// WithDefaultTimeout sets the default execution timeout for tools. Zero disables it.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent tool executions (semaphore).
// Pass 0 or negative to disable the semaphore (unlimited concurrency).
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithRecoverPanics enables panic recovery in Execute (enabled by default).
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(o *registryOptions) {
		o.logger = l
	}
}

// WithOnBeforeExecute sets a hook called before each tool execution.
func WithOnBeforeExecute(fn func(ctx context.Context, name string, args Args)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each tool execution, including failed lookups.
func WithOnAfterExecute(fn func(ctx context.Context, name string, res Result, err error, dur time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}

// RegisterOption configures a single Register call.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	categories []string
	replace    bool
}

// InCategory adds the tool to category, creating the category if needed.
func InCategory(category string) RegisterOption {
	return func(o *registerOptions) {
		o.categories = append(o.categories, category)
	}
}

// WithReplace allows Register to replace a tool with the same name.
func WithReplace() RegisterOption {
	return func(o *registerOptions) {
		o.replace = true
	}
}
