package teamcore

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/teamcore/config"
	"github.com/skosovsky/teamcore/container"
	"github.com/skosovsky/teamcore/llm"
	"github.com/skosovsky/teamcore/llm/mock"
	"github.com/skosovsky/teamcore/testutil"
	"github.com/skosovsky/teamcore/tools"
	"github.com/skosovsky/teamcore/tools/builtin"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Started at init by the gemini client dependencies.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func mockConfig(t *testing.T, responses ...string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Provider = "mock"
	cfg.LLM.Responses = responses
	cfg.Tools.Root = t.TempDir()
	return cfg
}

func TestNew_RegistersServices(t *testing.T) {
	c, err := New(mockConfig(t, "hello"), WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.Equal(t, []string{ServiceConfig, ServiceLLMProvider, ServiceLogger, ServiceToolRegistry}, c.Names())

	p := container.MustResolve[llm.Provider](c, ServiceLLMProvider)
	assert.IsType(t, &mock.Provider{}, p)
	resp, err := p.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)

	reg := container.MustResolve[*tools.Registry](c, ServiceToolRegistry)
	assert.ElementsMatch(t, builtin.Names(), reg.Names())

	cfg := container.MustResolve[config.Config](c, ServiceConfig)
	assert.Equal(t, "mock", cfg.LLM.Provider)

	// Singletons resolve to the same instance.
	assert.Same(t, reg, container.MustResolve[*tools.Registry](c, ServiceToolRegistry))
}

func TestNew_WithoutBuiltinsExtraTools(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Tools.Builtins = false
	extra := &testutil.MockTool{NameVal: "ping", OutputVal: "pong"}

	c, err := New(cfg, WithTools(extra), WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	reg := container.MustResolve[*tools.Registry](c, ServiceToolRegistry)
	assert.Equal(t, []string{"ping"}, reg.Names())
}

func TestNew_ChildOfParent(t *testing.T) {
	parent := container.New()
	parent.RegisterSingleton("db", "postgres://")

	c, err := New(mockConfig(t), WithParent(parent), WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.Same(t, parent, c.Parent())
	assert.Equal(t, "postgres://", container.MustResolve[string](c, "db"))
	assert.False(t, parent.Has(ServiceLLMProvider))
}

func TestNew_Errors(t *testing.T) {
	cfg := mockConfig(t)
	cfg.LLM.Provider = "nonexistent"
	_, err := New(cfg, WithLogger(slog.New(slog.DiscardHandler)))
	require.ErrorIs(t, err, llm.ErrUnknownProvider)

	cfg = mockConfig(t)
	cfg.Log.Format = "xml"
	_, err = New(cfg)
	require.Error(t, err)
}

func TestNew_ToolLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := New(mockConfig(t), WithLogger(logger))
	require.NoError(t, err)
	reg := container.MustResolve[*tools.Registry](c, ServiceToolRegistry)

	res, err := reg.Execute(context.Background(), builtin.CodeAnalysis, tools.Args{"code": "x = 1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, buf.String(), `msg="tool end" tool=code_analysis`)
	assert.Contains(t, buf.String(), `msg="teamcore ready" provider=mock`)
}
