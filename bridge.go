package teamcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/skosovsky/teamcore/llm"
	"github.com/skosovsky/teamcore/tools"
)

// DefaultMaxRounds bounds the model/tool exchanges of RunToolLoop.
const DefaultMaxRounds = 8

// ErrMaxRounds is returned by RunToolLoop when the model keeps requesting tools.
var ErrMaxRounds = errors.New("teamcore: tool loop exceeded max rounds")

// ToolDefinitions converts the tools of reg into provider tool definitions, sorted by name.
func ToolDefinitions(reg *tools.Registry) []llm.ToolDefinition {
	schemas := reg.ToOpenAIFormat()
	defs := make([]llm.ToolDefinition, 0, len(schemas))
	for _, s := range schemas {
		defs = append(defs, llm.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters.Map(),
		})
	}
	return defs
}

// RunToolCalls executes the calls concurrently and returns one tool message per call, in
// order. Calls without an ID are given one so that each message answers a distinct call.
// Lookup, validation and execution failures are reported to the model as "Error: ..." content.
func RunToolCalls(ctx context.Context, reg *tools.Registry, calls []llm.ToolCall) []llm.Message {
	batch := make([]tools.Call, len(calls))
	for i, c := range calls {
		id := c.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		batch[i] = tools.Call{ID: id, Name: c.Name, Arguments: []byte(c.Arguments)}
	}
	results := reg.ExecuteBatch(ctx, batch)
	msgs := make([]llm.Message, len(results))
	for i, r := range results {
		msgs[i] = llm.ToolMessage(r.ID, toolContent(r))
	}
	return msgs
}

func toolContent(r tools.CallResult) string {
	switch {
	case r.Err != nil:
		return "Error: " + r.Err.Error()
	case !r.Result.Success:
		return "Error: " + r.Result.Error
	}
	return r.Result.OutputString()
}

type loopOptions struct {
	maxRounds int
	callOpts  []llm.ConfigOption
	onCall    func(llm.ToolCall, llm.Message)
}

// LoopOption configures RunToolLoop.
type LoopOption func(*loopOptions)

// WithMaxRounds sets the maximum number of model turns.
func WithMaxRounds(n int) LoopOption {
	return func(o *loopOptions) {
		o.maxRounds = n
	}
}

// WithCallOptions overrides the provider configuration for every turn of the loop.
func WithCallOptions(opts ...llm.ConfigOption) LoopOption {
	return func(o *loopOptions) {
		o.callOpts = append(o.callOpts, opts...)
	}
}

// WithOnToolCall registers a callback invoked with each tool call and its answer.
func WithOnToolCall(fn func(call llm.ToolCall, answer llm.Message)) LoopOption {
	return func(o *loopOptions) {
		o.onCall = fn
	}
}

// RunToolLoop sends messages to p with the tools of reg, executes the requested tool calls
// and feeds the results back until the model answers without calling tools. It returns the
// final response and the full transcript.
func RunToolLoop(ctx context.Context, p llm.Provider, reg *tools.Registry, messages []llm.Message, opts ...LoopOption) (*llm.Response, []llm.Message, error) {
	o := loopOptions{maxRounds: DefaultMaxRounds}
	for _, opt := range opts {
		opt(&o)
	}
	callOpts := append([]llm.ConfigOption{llm.WithTools(ToolDefinitions(reg)...)}, o.callOpts...)
	transcript := append([]llm.Message(nil), messages...)

	for round := 0; round < o.maxRounds; round++ {
		resp, err := p.GenerateChat(ctx, transcript, callOpts...)
		if err != nil {
			return nil, transcript, err
		}
		if len(resp.ToolCalls) == 0 {
			transcript = append(transcript, llm.AssistantMessage(resp.Content))
			return resp, transcript, nil
		}
		calls := resp.ToolCalls
		answers := RunToolCalls(ctx, reg, calls)
		for i := range calls {
			calls[i].ID = answers[i].ToolCallID
		}
		transcript = append(transcript, llm.AssistantToolCallMessage(resp.Content, calls))
		for i, answer := range answers {
			if o.onCall != nil {
				o.onCall(calls[i], answer)
			}
			transcript = append(transcript, answer)
		}
	}
	return nil, transcript, fmt.Errorf("%w (%d)", ErrMaxRounds, o.maxRounds)
}
