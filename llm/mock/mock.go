// Package mock provides a deterministic in-memory llm.Provider for tests.
//
// Responses are returned in order. Once the sequence is exhausted the last response is
// repeated for every further call. Every call is appended to the history before a response
// is chosen. The provider never performs network I/O.
package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skosovsky/teamcore/llm"
)

// Name is the registry key of the mock provider.
const Name = "mock"

// DefaultResponse is returned when no responses are configured.
const DefaultResponse = "Mock response"

// Call records one generation request.
type Call struct {
	// Prompt is set for Generate calls.
	Prompt string
	// Messages holds the conversation; Generate records a single user message.
	Messages  []llm.Message
	Config    llm.Config
	Timestamp time.Time
}

// Provider is a deterministic llm.Provider.
type Provider struct {
	llm.Base

	mu        sync.Mutex
	responses []string
	next      int
	history   []Call
	failNext  error
}

// New creates a mock provider returning responses in order. With no responses it always
// returns DefaultResponse.
func New(cfg llm.Config, responses ...string) *Provider {
	p := &Provider{responses: slices.Clone(responses)}
	p.Init(Name, cfg)
	return p
}

// Factory is the llm.Factory for the mock provider. It uses Options.Responses.
func Factory(cfg llm.Config, opts llm.Options) (llm.Provider, error) {
	return New(cfg, opts.Responses...), nil
}

// Initialize is a no-op.
func (p *Provider) Initialize(context.Context) error { return nil }

// ValidateConfig always succeeds.
func (p *Provider) ValidateConfig() error { return nil }

// Generate records prompt and returns the next canned response.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.ConfigOption) (*llm.Response, error) {
	return p.generate(ctx, prompt, []llm.Message{llm.UserMessage(prompt)}, opts)
}

// GenerateChat records messages and returns the next canned response.
func (p *Provider) GenerateChat(ctx context.Context, messages []llm.Message, opts ...llm.ConfigOption) (*llm.Response, error) {
	if err := llm.ValidateMessages(messages); err != nil {
		return nil, err
	}
	return p.generate(ctx, "", slices.Clone(messages), opts)
}

func (p *Provider) generate(ctx context.Context, prompt string, msgs []llm.Message, opts []llm.ConfigOption) (*llm.Response, error) {
	cfg := p.CallConfig(opts...)

	p.mu.Lock()
	p.history = append(p.history, Call{
		Prompt:    prompt,
		Messages:  msgs,
		Config:    cfg,
		Timestamp: time.Now(),
	})
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return nil, llm.WrapCallError(Name, cfg, 0, err)
	}
	if err := p.failNext; err != nil {
		p.failNext = nil
		p.mu.Unlock()
		return nil, &llm.ProviderError{Provider: Name, Message: err.Error(), Err: err}
	}
	content := p.pick()
	p.mu.Unlock()

	promptTokens := 0
	for _, m := range msgs {
		n, err := llm.CountTokens(cfg.Model, m.Content)
		if err != nil {
			return nil, err
		}
		promptTokens += n
	}
	completionTokens, err := llm.CountTokens(cfg.Model, content)
	if err != nil {
		return nil, err
	}
	return &llm.Response{
		ID:               "mock-" + uuid.NewString(),
		Content:          content,
		Model:            cfg.Model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		FinishReason:     "stop",
	}, nil
}

// pick returns the next response. Caller holds p.mu.
func (p *Provider) pick() string {
	if len(p.responses) == 0 {
		return DefaultResponse
	}
	i := min(p.next, len(p.responses)-1)
	if p.next < len(p.responses) {
		p.next++
	}
	return p.responses[i]
}

// AddResponse appends a response to the sequence.
func (p *Provider) AddResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, response)
}

// SetResponses replaces the sequence and rewinds to its start.
func (p *Provider) SetResponses(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = slices.Clone(responses)
	p.next = 0
}

// FailNext makes the next call fail with a *llm.ProviderError wrapping err.
func (p *Provider) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

// History returns a copy of the recorded calls in order.
func (p *Provider) History() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.history)
}

// ClearHistory drops the recorded calls and keeps the response position.
func (p *Provider) ClearHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = nil
}

// Reset drops the recorded calls, rewinds the sequence and clears any pending failure.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = nil
	p.next = 0
	p.failNext = nil
}

var _ llm.Provider = (*Provider)(nil)
