package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/teamcore/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

const messageJSON = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-sonnet-20240229",
  "content": [{"type": "text", "text": "Hello from Claude"}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 12, "output_tokens": 4}
}`

func newServer(t *testing.T, handler http.HandlerFunc) llm.Options {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return llm.NewOptions(
		llm.WithAPIKey("test-key"),
		llm.WithBaseURL(srv.URL),
		llm.WithHTTPClient(srv.Client()),
		llm.WithMaxRetries(0),
	)
}

func TestNew_DefaultModel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultModel},
		{"gpt-4", DefaultModel},
		{"claude-3-haiku-20240307", "claude-3-haiku-20240307"},
	}
	for _, tt := range tests {
		p := New(llm.NewConfig(llm.WithModel(tt.in)), llm.NewOptions())
		assert.Equal(t, tt.want, p.Config().Model, tt.in)
	}
}

func TestProvider_GenerateChat(t *testing.T) {
	var body struct {
		Model     string  `json:"model"`
		MaxTokens int     `json:"max_tokens"`
		Temp      float64 `json:"temperature"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		StopSequences []string `json:"stop_sequences"`
	}
	var apiKey string
	opts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		apiKey = r.Header.Get("X-Api-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageJSON))
	})

	p := New(llm.NewConfig(llm.WithStopSequences("END")), opts)
	resp, err := p.GenerateChat(context.Background(), []llm.Message{
		llm.SystemMessage("You are terse."),
		llm.UserMessage("Hi"),
		llm.AssistantMessage("Hello"),
		llm.UserMessage("Bye"),
	}, llm.WithTemperature(1.5))
	require.NoError(t, err)

	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, DefaultModel, body.Model)
	assert.Equal(t, llm.DefaultMaxTokens, body.MaxTokens)
	assert.InDelta(t, 1.0, body.Temp, 1e-9)
	require.Len(t, body.System, 1)
	assert.Equal(t, "You are terse.", body.System[0].Text)
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "user", body.Messages[0].Role)
	assert.Equal(t, "assistant", body.Messages[1].Role)
	assert.Equal(t, []string{"END"}, body.StopSequences)

	assert.Equal(t, "Hello from Claude", resp.Content)
	assert.Equal(t, "msg_01", resp.ID)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 4, resp.CompletionTokens)
	assert.Equal(t, 16, resp.TotalTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestProvider_ToolUse(t *testing.T) {
	var body struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Type       string         `json:"type"`
				Properties map[string]any `json:"properties"`
				Required   []string       `json:"required"`
			} `json:"input_schema"`
		} `json:"tools"`
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
	}
	opts := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_02", "type": "message", "role": "assistant", "model": "claude-3-sonnet-20240229",
  "content": [
    {"type": "text", "text": "Searching."},
    {"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"query": "go"}}
  ],
  "stop_reason": "tool_use", "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 10}
}`))
	})

	tool := llm.ToolDefinition{
		Name:        "search",
		Description: "Search",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}
	p := New(llm.NewConfig(llm.WithTools(tool)), opts)
	resp, err := p.GenerateChat(context.Background(), []llm.Message{
		llm.UserMessage("find go"),
		llm.AssistantToolCallMessage("", []llm.ToolCall{{ID: "toolu_0", Name: "search", Arguments: `{"query":"x"}`}}),
		llm.ToolMessage("toolu_0", "nothing"),
	})
	require.NoError(t, err)

	require.Len(t, body.Tools, 1)
	assert.Equal(t, "search", body.Tools[0].Name)
	assert.Equal(t, "object", body.Tools[0].InputSchema.Type)
	assert.Equal(t, []string{"query"}, body.Tools[0].InputSchema.Required)
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "tool_use", body.Messages[1].Content[0]["type"])
	assert.Equal(t, "user", body.Messages[2].Role)
	assert.Equal(t, "tool_result", body.Messages[2].Content[0]["type"])

	assert.Equal(t, "Searching.", resp.Content)
	assert.Equal(t, "tool_use", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"query":"go"}`, resp.ToolCalls[0].Arguments)
}

func TestProvider_HTTPError(t *testing.T) {
	opts := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: too large"}}`))
	})

	_, err := New(llm.DefaultConfig(), opts).Generate(context.Background(), "x")
	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Equal(t, Name, pe.Provider)
}

func TestProvider_Timeout(t *testing.T) {
	opts := newServer(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	_, err := New(llm.NewConfig(llm.WithTimeout(50*time.Millisecond)), opts).Generate(context.Background(), "x")
	require.ErrorIs(t, err, llm.ErrProviderTimeout)
}

func TestProvider_MissingCredentials(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(llm.EnvAPIKey, "")

	p := New(llm.DefaultConfig(), llm.NewOptions())
	err := p.Initialize(context.Background())
	require.ErrorIs(t, err, llm.ErrMissingCredentials)
	assert.Contains(t, err.Error(), EnvAPIKey)
}

func TestProvider_ValidateConfig(t *testing.T) {
	p := New(llm.DefaultConfig(), llm.NewOptions())
	require.NoError(t, p.ValidateConfig())

	p.UpdateConfig(llm.WithTemperature(1.5))
	require.ErrorIs(t, p.ValidateConfig(), llm.ErrInvalidConfig)
}

func TestBuildParams_BadToolArguments(t *testing.T) {
	_, err := buildParams(llm.DefaultConfig(), []llm.Message{
		llm.AssistantToolCallMessage("", []llm.ToolCall{{ID: "t", Name: "n", Arguments: "{"}}),
	})
	require.Error(t, err)
}
