package tools

// ToOpenAIFormat returns every registered tool in the flat function-calling shape
// {name, description, parameters}, sorted by tool name.
func (r *Registry) ToOpenAIFormat() []FunctionSchema {
	list := r.List()
	out := make([]FunctionSchema, 0, len(list))
	for _, t := range list {
		out = append(out, SchemaOf(t))
	}
	return out
}

// ToOpenAITools returns every registered tool wrapped as {"type":"function","function":{...}},
// ready for a chat completions request body.
func (r *Registry) ToOpenAITools() []FunctionTool {
	schemas := r.ToOpenAIFormat()
	out := make([]FunctionTool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, FunctionTool{Type: "function", Function: s})
	}
	return out
}
