// Package tools registers, describes and safely executes named tools for LLM agents.
//
// # Overview
//
// A Tool has a unique name, a one-line description and ordered Parameters. The same
// parameters drive the schema shown to the model (ToOpenAIFormat) and the validation of
// incoming arguments, so what the model sees is what the tool accepts.
//
// Pipeline: parameters or a typed Go function → NewTool / NewFuncTool → Registry →
// Execute (validate, fill defaults, run, capture failures) → Result.
//
// # Key concepts
//
//   - Invalid arguments are returned as *ValidationError so the caller can report them back
//     to the model. Everything else (handler errors, panics, timeouts) becomes a Result with
//     Success false; a tool execution never crashes the caller.
//   - Partial success: ExecuteBatch collects all results; one failure does not cancel others.
//   - Categories are a grouping over registered tools; unregistering a tool removes it from
//     every category.
//
// # Example
//
//	type SearchArgs struct {
//	    Query string `json:"query" description:"Search query"`
//	    Limit int    `json:"limit" default:"10"`
//	}
//	func Search(_ context.Context, a SearchArgs) ([]string, error) { ... }
//
//	reg := tools.NewRegistry()
//	if _, err := tools.Define(reg, Search, tools.WithDescription("Search documents")); err != nil { ... }
//	res, err := reg.Execute(ctx, "search", tools.Args{"query": "go"})
package tools
