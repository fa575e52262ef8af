package tools

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))
	failing, err := NewTool("fail", "", nil, func(context.Context, Args) (any, error) {
		return nil, assert.AnError
	})
	require.NoError(t, err)
	require.NoError(t, reg.Register(failing))
	reg.Use(WithLogging(logger))

	_, err = reg.Execute(context.Background(), "echo", Args{"text": "x"})
	require.NoError(t, err)
	_, err = reg.Execute(context.Background(), "fail", nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="tool start" tool=echo`)
	assert.Contains(t, out, `msg="tool end" tool=echo`)
	assert.Contains(t, out, `msg="tool error" tool=fail`)
}

func TestWithRecovery(t *testing.T) {
	reg := NewRegistry(WithRecoverPanics(false))
	require.NoError(t, reg.Register(panickyTool{}))
	reg.Use(WithRecovery())

	res, err := reg.Execute(context.Background(), "panicky", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panic")
}

func TestWithTimeoutMiddleware(t *testing.T) {
	slow, err := NewTool("slow", "", nil, func(ctx context.Context, _ Args) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(time.Minute))
	require.NoError(t, reg.Register(slow))
	reg.Use(WithTimeoutMiddleware(20 * time.Millisecond))

	wrapped, ok := reg.Get("slow")
	require.True(t, ok)
	md, ok := wrapped.(Metadata)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, md.Timeout())

	res, err := reg.Execute(context.Background(), "slow", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "deadline exceeded")
}

func TestWithTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))
	reg.Use(WithTracing(tp.Tracer("test")))

	_, err := reg.Execute(context.Background(), "echo", Args{"text": "x"})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "execute_tool echo", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("gen_ai.tool.name", "echo"))
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("tool.success", true))
}

func TestUse_ReplacesChain(t *testing.T) {
	var calls int
	counting := func(next Tool) Tool {
		calls++
		return next
	}
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool(t, "echo")))
	reg.Use(counting)
	reg.Use(counting)
	assert.Equal(t, 2, calls)

	require.NoError(t, reg.Register(echoTool(t, "later")))
	assert.Equal(t, 3, calls)
}
