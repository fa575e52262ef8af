// Package anthropic provides an llm.Provider backed by the Anthropic Messages API.
//
// System messages are lifted out of the conversation into the request's system prompt.
// Token usage maps input tokens to PromptTokens and output tokens to CompletionTokens.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/skosovsky/teamcore/llm"
)

const (
	// Name is the registry key of the provider.
	Name = "anthropic"
	// EnvAPIKey is the vendor credential variable.
	EnvAPIKey = "ANTHROPIC_API_KEY"
	// DefaultModel replaces an empty model or one of the OpenAI defaults.
	DefaultModel = "claude-3-sonnet-20240229"
)

// Provider implements llm.Provider using the Anthropic API.
type Provider struct {
	llm.Base

	opts   llm.Options
	logger *slog.Logger

	mu     sync.Mutex
	client *sdk.Client
}

// New constructs an Anthropic provider. A model left at the shared OpenAI default is
// replaced with DefaultModel.
func New(cfg llm.Config, opts llm.Options) *Provider {
	if cfg.Model == "" || strings.HasPrefix(cfg.Model, "gpt-") {
		cfg.Model = DefaultModel
	}
	p := &Provider{opts: opts, logger: opts.Logger}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.Init(Name, cfg)
	return p
}

// Factory is the llm.Factory for Anthropic.
func Factory(cfg llm.Config, opts llm.Options) (llm.Provider, error) {
	return New(cfg, opts), nil
}

// Initialize resolves the API key and builds the SDK client.
func (p *Provider) Initialize(context.Context) error {
	_, err := p.getClient()
	return err
}

func (p *Provider) getClient() (*sdk.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	key := llm.ResolveAPIKey(p.opts.APIKey, p.Config().APIKey, EnvAPIKey)
	if key == "" {
		return nil, &llm.MissingCredentialsError{Provider: Name, EnvVars: llm.CredentialEnvVars(EnvAPIKey)}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(key)}
	if p.opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.opts.BaseURL))
	}
	if p.opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(p.opts.HTTPClient))
	}
	if p.opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(p.opts.MaxRetries))
	}

	client := sdk.NewClient(reqOpts...)
	p.client = &client
	p.logger.Debug("llm provider initialized", "provider", Name)
	return p.client, nil
}

// ValidateConfig checks the configuration without network I/O. Anthropic caps temperature
// at 1; calls clamp it silently, ValidateConfig reports it.
func (p *Provider) ValidateConfig() error {
	cfg := p.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Temperature > 1 {
		return fmt.Errorf("%w: anthropic temperature must be in [0, 1], got %g", llm.ErrInvalidConfig, cfg.Temperature)
	}
	return nil
}

// Generate completes prompt as a single user message.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.ConfigOption) (*llm.Response, error) {
	return p.GenerateChat(ctx, []llm.Message{llm.UserMessage(prompt)}, opts...)
}

// GenerateChat completes a conversation.
func (p *Provider) GenerateChat(ctx context.Context, messages []llm.Message, opts ...llm.ConfigOption) (*llm.Response, error) {
	if err := llm.ValidateMessages(messages); err != nil {
		return nil, err
	}
	cfg := p.CallConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	params, err := buildParams(cfg, messages)
	if err != nil {
		return nil, err
	}

	ctx, cancel := llm.WithCallTimeout(ctx, cfg)
	defer cancel()

	msg, err := client.Messages.New(ctx, params, extraOptions(cfg)...)
	if err != nil {
		status := 0
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		p.logger.Warn("llm call failed", "provider", Name, "model", cfg.Model, "status", status, "error", err)
		return nil, llm.WrapContextError(ctx, Name, cfg, status, err)
	}
	return convertResponse(cfg, msg), nil
}

// extraOptions sends Config.Extra as raw body fields.
func extraOptions(cfg llm.Config) []option.RequestOption {
	opts := make([]option.RequestOption, 0, len(cfg.Extra))
	for k, v := range cfg.Extra {
		opts = append(opts, option.WithJSONSet(k, v))
	}
	return opts
}

func convertResponse(cfg llm.Config, msg *sdk.Message) *llm.Response {
	out := &llm.Response{
		ID:               msg.ID,
		Model:            string(msg.Model),
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		FinishReason:     string(msg.StopReason),
	}
	out.TotalTokens = out.PromptTokens + out.CompletionTokens
	if out.Model == "" {
		out.Model = cfg.Model
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	out.Content = text.String()
	return out
}

func buildParams(cfg llm.Config, messages []llm.Message) (sdk.MessageNewParams, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
	}
	params.Temperature = sdk.Float(min(cfg.Temperature, 1))
	// top_p is only sent when it narrows sampling.
	if cfg.TopP > 0 && cfg.TopP < 1 {
		params.TopP = sdk.Float(cfg.TopP)
	}
	if len(cfg.StopSequences) > 0 {
		params.StopSequences = cfg.StopSequences
	}

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case llm.RoleUser:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			var blocks []sdk.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any = map[string]any{}
				if strings.TrimSpace(tc.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						return sdk.MessageNewParams{}, fmt.Errorf("anthropic: tool call %s arguments: %w", tc.ID, err)
					}
				}
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(blocks...))
		case llm.RoleTool:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			return sdk.MessageNewParams{}, fmt.Errorf("anthropic: unknown message role %q", m.Role)
		}
	}

	for _, td := range cfg.Tools {
		schema := sdk.ToolInputSchemaParam{Properties: td.Parameters["properties"]}
		if req, ok := td.Parameters["required"].([]string); ok {
			schema.Required = req
		} else if req, ok := td.Parameters["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		params.Tools = append(params.Tools, sdk.ToolUnionParam{OfTool: &sdk.ToolParam{
			Name:        td.Name,
			Description: sdk.String(td.Description),
			InputSchema: schema,
		}})
	}
	return params, nil
}

var _ llm.Provider = (*Provider)(nil)
