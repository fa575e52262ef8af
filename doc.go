// Package teamcore wires the core building blocks of an AI coding team: a service container,
// an LLM provider and a tool registry.
//
// # Overview
//
// New builds a container.Container from a config.Config and registers four singletons:
//
//   - "config": the config.Config it was built from;
//   - "logger": the *slog.Logger shared by every component;
//   - "llm_provider": the llm.Provider selected by llm.provider;
//   - "tool_registry": the *tools.Registry, holding the built-in tools unless disabled.
//
// ToolDefinitions, RunToolCalls and RunToolLoop connect the registry with a provider's
// function-calling support.
//
// # Example
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	c, err := teamcore.New(cfg)
//	if err != nil { ... }
//	p := container.MustResolve[llm.Provider](c, teamcore.ServiceLLMProvider)
//	reg := container.MustResolve[*tools.Registry](c, teamcore.ServiceToolRegistry)
//	resp, err := teamcore.RunToolLoop(ctx, p, reg, []llm.Message{llm.UserMessage("List the Go files")})
package teamcore
