package anyllm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/teamcore/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Started at init by the gemini client dependencies.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New("nope", llm.DefaultConfig(), llm.NewOptions())
	require.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(" Gemini ", llm.DefaultConfig(), llm.NewOptions())
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, "gemini-1.5-flash", p.Config().Model)
	assert.Equal(t, "anyllm(gemini, gemini-1.5-flash)", p.String())

	p, err = New("mistral", llm.NewConfig(llm.WithModel("mistral-large-latest")), llm.NewOptions())
	require.NoError(t, err)
	assert.Equal(t, "mistral-large-latest", p.Config().Model)
}

func TestBackends(t *testing.T) {
	assert.Equal(t, []string{"deepseek", "gemini", "groq", "llamacpp", "llamafile", "mistral", "ollama"}, Backends())
}

func TestProvider_MissingCredentials(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv(llm.EnvAPIKey, "")

	p, err := FactoryFor("groq")(llm.DefaultConfig(), llm.NewOptions())
	require.NoError(t, err)
	err = p.Initialize(context.Background())
	require.ErrorIs(t, err, llm.ErrMissingCredentials)

	var mce *llm.MissingCredentialsError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "groq", mce.Provider)
	assert.Equal(t, []string{"GROQ_API_KEY", llm.EnvAPIKey}, mce.EnvVars)

	_, err = p.Generate(context.Background(), "x")
	require.ErrorIs(t, err, llm.ErrMissingCredentials)
}

func TestConvertMessage(t *testing.T) {
	got := convertMessage(llm.SystemMessage("You are helpful."))
	assert.Equal(t, "system", got.Role)
	assert.Equal(t, "You are helpful.", got.ContentString())

	got = convertMessage(llm.ToolMessage("call_1", "sunny"))
	assert.Equal(t, "tool", got.Role)
	assert.Equal(t, "call_1", got.ToolCallID)

	got = convertMessage(llm.AssistantToolCallMessage("", []llm.ToolCall{
		{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Berlin"}`},
	}))
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "function", got.ToolCalls[0].Type)
	assert.Equal(t, "get_weather", got.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"city":"Berlin"}`, got.ToolCalls[0].Function.Arguments)
}

func TestBuildParams(t *testing.T) {
	cfg := llm.NewConfig(
		llm.WithModel("llama3"),
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(256),
		llm.WithTools(llm.ToolDefinition{Name: "search", Description: "d", Parameters: map[string]any{"type": "object"}}),
	)
	params := buildParams(cfg, []llm.Message{llm.UserMessage("a"), llm.AssistantMessage("b")})

	assert.Equal(t, "llama3", params.Model)
	require.Len(t, params.Messages, 2)
	assert.Equal(t, "user", params.Messages[0].Role)
	require.NotNil(t, params.Temperature)
	assert.InDelta(t, 0.3, *params.Temperature, 1e-9)
	require.NotNil(t, params.MaxTokens)
	assert.Equal(t, 256, *params.MaxTokens)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "search", params.Tools[0].Function.Name)
}
