package tools

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware wraps a Tool with cross-cutting behavior (logging, recovery, timeout, tracing).
type Middleware func(Tool) Tool

// WithLogging returns a middleware that logs start, end, duration and failures.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		return &loggingTool{toolBase: toolBase{next: next}, logger: logger}
	}
}

// WithRecovery returns a middleware that turns panics into failed Results.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		return &recoveryTool{toolBase{next: next}}
	}
}

// WithTimeoutMiddleware returns a middleware that enforces a per-tool timeout. Named with the
// "Middleware" suffix to avoid collision with ToolOption WithTimeout. When the registry default
// also applies, the shorter deadline wins.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Tool) Tool {
		return &timeoutTool{toolBase: toolBase{next: next}, timeout: d}
	}
}

// WithTracing returns a middleware that records one span per execution.
// A nil tracer uses the global provider.
func WithTracing(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("github.com/skosovsky/teamcore/tools")
	}
	return func(next Tool) Tool {
		return &tracingTool{toolBase: toolBase{next: next}, tracer: tracer}
	}
}

// toolBase delegates Tool and Metadata to the wrapped Tool; used by middleware wrappers.
type toolBase struct{ next Tool }

func (b *toolBase) Name() string            { return b.next.Name() }
func (b *toolBase) Description() string     { return b.next.Description() }
func (b *toolBase) Parameters() []Parameter { return b.next.Parameters() }

func (b *toolBase) Timeout() time.Duration {
	if md, ok := b.next.(Metadata); ok {
		return md.Timeout()
	}
	return 0
}

func (b *toolBase) Categories() []string {
	if md, ok := b.next.(Metadata); ok {
		return md.Categories()
	}
	return nil
}

func (b *toolBase) Version() string {
	if md, ok := b.next.(Metadata); ok {
		return md.Version()
	}
	return ""
}

func (b *toolBase) IsDangerous() bool {
	if md, ok := b.next.(Metadata); ok {
		return md.IsDangerous()
	}
	return false
}

type loggingTool struct {
	toolBase
	logger *slog.Logger
}

func (m *loggingTool) Execute(ctx context.Context, args Args) (Result, error) {
	name := m.next.Name()
	m.logger.InfoContext(ctx, "tool start", "tool", name)
	start := time.Now()
	res, err := m.next.Execute(ctx, args)
	dur := time.Since(start)
	switch {
	case err != nil:
		m.logger.ErrorContext(ctx, "tool error", "tool", name, "duration", dur, "error", err)
	case !res.Success:
		m.logger.ErrorContext(ctx, "tool error", "tool", name, "duration", dur, "error", res.Error)
	default:
		m.logger.InfoContext(ctx, "tool end", "tool", name, "duration", dur)
	}
	return res, err
}

type recoveryTool struct{ toolBase }

func (r *recoveryTool) Execute(ctx context.Context, args Args) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = Failed(r.next.Name(), (&panicError{p: p}).Error()), nil
		}
	}()
	return r.next.Execute(ctx, args)
}

type timeoutTool struct {
	toolBase
	timeout time.Duration
}

func (t *timeoutTool) Timeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return t.toolBase.Timeout()
}

func (t *timeoutTool) Execute(ctx context.Context, args Args) (Result, error) {
	if t.timeout <= 0 {
		return t.next.Execute(ctx, args)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Execute(ctx, args)
}

type tracingTool struct {
	toolBase
	tracer trace.Tracer
}

func (t *tracingTool) Execute(ctx context.Context, args Args) (Result, error) {
	name := t.next.Name()
	ctx, span := t.tracer.Start(ctx, "execute_tool "+name,
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "execute_tool"),
			attribute.String("gen_ai.tool.name", name),
		),
	)
	defer span.End()

	res, err := t.next.Execute(ctx, args)
	span.SetAttributes(attribute.Bool("tool.success", err == nil && res.Success))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !res.Success:
		span.SetStatus(codes.Error, res.Error)
	default:
		span.SetStatus(codes.Ok, "")
	}
	return res, err
}

// wrap applies the stored middlewares to t (first middleware is outermost). Callers hold r.mu.
func (r *Registry) wrap(t Tool) Tool {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	return t
}

// Use stores the given middlewares and reapplies them from scratch to all registered tools
// (onion order: first middleware is outermost). Tools registered later get them too.
// Calling Use again replaces the chain and rewraps from raw tools, avoiding double-wrapping.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawTools {
		r.tools[name] = r.wrap(raw)
	}
}
