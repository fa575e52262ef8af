// Package openai provides an llm.Provider backed by the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/skosovsky/teamcore/llm"
)

const (
	// Name is the registry key of the provider.
	Name = "openai"
	// EnvAPIKey is the vendor credential variable.
	EnvAPIKey = "OPENAI_API_KEY"
)

// Provider implements llm.Provider using the OpenAI API.
type Provider struct {
	llm.Base

	opts   llm.Options
	logger *slog.Logger

	mu     sync.Mutex
	client *oai.Client
}

// New constructs an OpenAI provider. No network I/O happens and missing credentials are
// reported by Initialize or the first call.
func New(cfg llm.Config, opts llm.Options) *Provider {
	p := &Provider{opts: opts, logger: opts.Logger}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.Init(Name, cfg)
	return p
}

// Factory is the llm.Factory for OpenAI.
func Factory(cfg llm.Config, opts llm.Options) (llm.Provider, error) {
	return New(cfg, opts), nil
}

// Initialize resolves the API key and builds the SDK client.
func (p *Provider) Initialize(context.Context) error {
	_, err := p.getClient()
	return err
}

func (p *Provider) getClient() (*oai.Client, error) {
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
	if p.opts.Organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(p.opts.Organization))
	}
	if p.opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(p.opts.HTTPClient))
	}
	if p.opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(p.opts.MaxRetries))
	}

	client := oai.NewClient(reqOpts...)
	p.client = &client
	p.logger.Debug("llm provider initialized", "provider", Name)
	return p.client, nil
}

// ValidateConfig checks the configuration without network I/O.
func (p *Provider) ValidateConfig() error {
	return p.Config().Validate()
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

	resp, err := client.Chat.Completions.New(ctx, params, extraOptions(cfg)...)
	if err != nil {
		return nil, p.callError(ctx, cfg, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.ProviderError{Provider: Name, Message: "empty choices in response"}
	}
	return p.convertResponse(cfg, messages, resp)
}

func (p *Provider) callError(ctx context.Context, cfg llm.Config, err error) error {
	status := 0
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	werr := llm.WrapContextError(ctx, Name, cfg, status, err)
	p.logger.Warn("llm call failed", "provider", Name, "model", cfg.Model, "status", status, "error", err)
	return werr
}

func (p *Provider) convertResponse(cfg llm.Config, messages []llm.Message, resp *oai.ChatCompletion) (*llm.Response, error) {
	choice := resp.Choices[0]
	out := &llm.Response{
		ID:               resp.ID,
		Content:          choice.Message.Content,
		Model:            resp.Model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		FinishReason:     choice.FinishReason,
	}
	if out.Model == "" {
		out.Model = cfg.Model
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	// Some compatible servers omit usage; fall back to a local estimate.
	if out.TotalTokens == 0 {
		prompt, err := llm.CountMessageTokens(cfg.Model, messages)
		if err != nil {
			return nil, err
		}
		completion, err := llm.CountTokens(cfg.Model, out.Content)
		if err != nil {
			return nil, err
		}
		out.PromptTokens, out.CompletionTokens = prompt, completion
		out.TotalTokens = prompt + completion
		out.Metadata = map[string]any{"usage_estimated": true}
	}
	return out, nil
}

func buildParams(cfg llm.Config, messages []llm.Message) (oai.ChatCompletionNewParams, error) {
	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		msg, err := convertMessage(m)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		msgs = append(msgs, msg)
	}

	params := oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(cfg.Model),
		Messages:            msgs,
		Temperature:         param.NewOpt(cfg.Temperature),
		TopP:                param.NewOpt(cfg.TopP),
		MaxCompletionTokens: param.NewOpt(int64(cfg.MaxTokens)),
	}
	if cfg.FrequencyPenalty != 0 {
		params.FrequencyPenalty = param.NewOpt(cfg.FrequencyPenalty)
	}
	if cfg.PresencePenalty != 0 {
		params.PresencePenalty = param.NewOpt(cfg.PresencePenalty)
	}
	for _, td := range cfg.Tools {
		params.Tools = append(params.Tools, oai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        td.Name,
				Description: param.NewOpt(td.Description),
				Parameters:  shared.FunctionParameters(td.Parameters),
			},
		})
	}
	return params, nil
}

// extraOptions sends stop sequences and Config.Extra as raw body fields.
func extraOptions(cfg llm.Config) []option.RequestOption {
	var opts []option.RequestOption
	if len(cfg.StopSequences) > 0 {
		opts = append(opts, option.WithJSONSet("stop", cfg.StopSequences))
	}
	for k, v := range cfg.Extra {
		opts = append(opts, option.WithJSONSet(k, v))
	}
	return opts
}

func convertMessage(m llm.Message) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case llm.RoleSystem:
		return oai.SystemMessage(m.Content), nil
	case llm.RoleUser:
		return oai.UserMessage(m.Content), nil
	case llm.RoleAssistant:
		asst := oai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = oai.String(m.Content)
		}
		if m.Name != "" {
			asst.Name = oai.String(m.Name)
		}
		for _, tc := range m.ToolCalls {
			asst.ToolCalls = append(asst.ToolCalls, oai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: oai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return oai.ChatCompletionMessageParamUnion{OfAssistant: &asst}, nil
	case llm.RoleTool:
		return oai.ToolMessage(m.Content, m.ToolCallID), nil
	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: unknown message role %q", m.Role)
	}
}

var _ llm.Provider = (*Provider)(nil)
