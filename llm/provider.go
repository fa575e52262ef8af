// Package llm defines a uniform interface over interchangeable text and chat generation
// backends.
//
// Concrete providers live in subpackages (llm/openai, llm/anthropic, llm/anyllm, llm/mock)
// and are selected by name through a Registry; llm/providers wires the built-in set.
// Every provider wraps a Config, accepts per-call overrides and returns a normalized Response.
// Remote failures surface as *ProviderError, deadline overruns as *TimeoutError and absent
// credentials as *MissingCredentialsError; a provider never downgrades a failure to an
// empty Response.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role is the author of a Message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool carries the output of a tool call back to the model.
	RoleTool Role = "tool"
)

// Message is one entry of a conversation. Order within a conversation is chronological
// and is forwarded to providers verbatim.
type Message struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls is set on assistant messages that requested tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// SystemMessage returns a system-role Message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage returns a user-role Message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage returns an assistant-role Message.
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// AssistantToolCallMessage returns the assistant turn that requested calls. It must precede
// the matching tool messages when a conversation is sent back to the model.
func AssistantToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage returns a tool-role Message answering the tool call callID.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// Validate reports an unknown role or a tool message without a call ID.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	case RoleTool:
		if m.ToolCallID == "" {
			return errors.New("llm: tool message requires a tool call id")
		}
		return nil
	default:
		return fmt.Errorf("llm: unknown message role %q", m.Role)
	}
}

// ValidateMessages checks that msgs is non-empty and every message is valid.
func ValidateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return errors.New("llm: at least one message is required")
	}
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ToolDefinition describes a function the model may call. Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a function invocation requested by the model. Arguments is raw JSON.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response is the normalized result of a generation call.
//
// Token accounting is flat: PromptTokens counts input tokens, CompletionTokens counts
// generated tokens and TotalTokens is their sum unless the vendor reports its own total.
type Response struct {
	ID               string         `json:"id,omitempty"`
	Content          string         `json:"content"`
	Model            string         `json:"model"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	FinishReason     string         `json:"finish_reason,omitempty"`
	ToolCalls        []ToolCall     `json:"tool_calls,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Success reports whether the response carries non-empty content.
func (r *Response) Success() bool {
	return r != nil && r.Content != ""
}

// Provider is a text and chat generation backend.
type Provider interface {
	// Name returns the registry key of the provider (e.g. "openai").
	Name() string
	// Config returns a copy of the current configuration.
	Config() Config
	// UpdateConfig applies opts to the provider's configuration.
	UpdateConfig(opts ...ConfigOption)
	// Initialize resolves credentials and builds clients. It is idempotent and is called
	// implicitly by the first generation call.
	Initialize(ctx context.Context) error
	// ValidateConfig reports configuration problems without performing network I/O.
	ValidateConfig() error
	// Generate completes a single user prompt. opts override the configuration for this call only.
	Generate(ctx context.Context, prompt string, opts ...ConfigOption) (*Response, error)
	// GenerateChat completes a conversation. opts override the configuration for this call only.
	GenerateChat(ctx context.Context, messages []Message, opts ...ConfigOption) (*Response, error)
}
