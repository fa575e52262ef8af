// Package anyllm exposes additional vendors through github.com/mozilla-ai/any-llm-go.
//
// Each backend (gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile) is registered
// under its own name and behaves like any other llm.Provider.
package anyllm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"

	"github.com/skosovsky/teamcore/llm"
)

type backend struct {
	// envVars are vendor credential variables; empty means the backend needs no key.
	envVars      []string
	defaultModel string
	create       func(opts ...anyllmlib.Option) (anyllmlib.Provider, error)
}

var backends = map[string]backend{
	"gemini": {
		envVars:      []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		defaultModel: "gemini-1.5-flash",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return gemini.New(o...) },
	},
	"ollama": {
		defaultModel: "llama3",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return ollama.New(o...) },
	},
	"deepseek": {
		envVars:      []string{"DEEPSEEK_API_KEY"},
		defaultModel: "deepseek-chat",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return deepseek.New(o...) },
	},
	"mistral": {
		envVars:      []string{"MISTRAL_API_KEY"},
		defaultModel: "mistral-small-latest",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return mistral.New(o...) },
	},
	"groq": {
		envVars:      []string{"GROQ_API_KEY"},
		defaultModel: "llama-3.1-8b-instant",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return groq.New(o...) },
	},
	"llamacpp": {
		defaultModel: "local",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return llamacpp.New(o...) },
	},
	"llamafile": {
		defaultModel: "local",
		create:       func(o ...anyllmlib.Option) (anyllmlib.Provider, error) { return llamafile.New(o...) },
	},
}

// Backends returns the supported backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Provider implements llm.Provider on top of an any-llm-go backend.
type Provider struct {
	llm.Base

	spec   backend
	opts   llm.Options
	logger *slog.Logger

	mu      sync.Mutex
	backend anyllmlib.Provider
}

// New creates a provider for the named backend. An empty or OpenAI-default model is replaced
// with the backend's default model. The backend client is created by Initialize.
func New(name string, cfg llm.Config, opts llm.Options) (*Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	spec, ok := backends[name]
	if !ok {
		return nil, &llm.UnknownProviderError{Name: name, Registered: Backends()}
	}
	if cfg.Model == "" || strings.HasPrefix(cfg.Model, "gpt-") {
		cfg.Model = spec.defaultModel
	}
	p := &Provider{spec: spec, opts: opts, logger: opts.Logger}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.Init(name, cfg)
	return p, nil
}

// FactoryFor returns an llm.Factory creating providers for the named backend.
func FactoryFor(name string) llm.Factory {
	return func(cfg llm.Config, opts llm.Options) (llm.Provider, error) {
		return New(name, cfg, opts)
	}
}

// Initialize resolves credentials and creates the backend client.
func (p *Provider) Initialize(context.Context) error {
	_, err := p.getBackend()
	return err
}

func (p *Provider) getBackend() (anyllmlib.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend != nil {
		return p.backend, nil
	}

	var libOpts []anyllmlib.Option
	if len(p.spec.envVars) > 0 {
		key := llm.ResolveAPIKey(p.opts.APIKey, p.Config().APIKey, p.spec.envVars...)
		if key == "" {
			return nil, &llm.MissingCredentialsError{Provider: p.Name(), EnvVars: llm.CredentialEnvVars(p.spec.envVars...)}
		}
		libOpts = append(libOpts, anyllmlib.WithAPIKey(key))
	} else if key := strings.TrimSpace(p.opts.APIKey); key != "" {
		libOpts = append(libOpts, anyllmlib.WithAPIKey(key))
	}
	if p.opts.BaseURL != "" {
		libOpts = append(libOpts, anyllmlib.WithBaseURL(p.opts.BaseURL))
	}

	b, err := p.spec.create(libOpts...)
	if err != nil {
		return nil, &llm.ProviderError{Provider: p.Name(), Message: "create backend: " + err.Error(), Err: err}
	}
	p.backend = b
	p.logger.Debug("llm provider initialized", "provider", p.Name())
	return b, nil
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
	b, err := p.getBackend()
	if err != nil {
		return nil, err
	}

	ctx, cancel := llm.WithCallTimeout(ctx, cfg)
	defer cancel()

	resp, err := b.Completion(ctx, buildParams(cfg, messages))
	if err != nil {
		p.logger.Warn("llm call failed", "provider", p.Name(), "model", cfg.Model, "error", err)
		return nil, llm.WrapContextError(ctx, p.Name(), cfg, 0, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.ProviderError{Provider: p.Name(), Message: "empty choices in response"}
	}

	choice := resp.Choices[0]
	out := &llm.Response{
		ID:           resp.ID,
		Content:      choice.Message.ContentString(),
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
	}
	if out.Model == "" {
		out.Model = cfg.Model
	}
	if resp.Usage != nil {
		out.PromptTokens = resp.Usage.PromptTokens
		out.CompletionTokens = resp.Usage.CompletionTokens
		out.TotalTokens = resp.Usage.TotalTokens
	}
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func buildParams(cfg llm.Config, messages []llm.Message) anyllmlib.CompletionParams {
	params := anyllmlib.CompletionParams{
		Model:    cfg.Model,
		Messages: make([]anyllmlib.Message, 0, len(messages)),
	}
	for _, m := range messages {
		params.Messages = append(params.Messages, convertMessage(m))
	}

	temp := cfg.Temperature
	params.Temperature = &temp
	maxTokens := cfg.MaxTokens
	params.MaxTokens = &maxTokens

	for _, td := range cfg.Tools {
		params.Tools = append(params.Tools, anyllmlib.Tool{
			Type: "function",
			Function: anyllmlib.Function{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}
	return params
}

func convertMessage(m llm.Message) anyllmlib.Message {
	msg := anyllmlib.Message{
		Role:       string(m.Role),
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, anyllmlib.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: anyllmlib.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

func (p *Provider) String() string {
	return fmt.Sprintf("anyllm(%s, %s)", p.Name(), p.Config().Model)
}

var _ llm.Provider = (*Provider)(nil)
