// Package tools defines the tools the agent can call: the six health
// log writers, web search, and the calculator.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Handler executes a tool call and returns text for the model to read.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// Registry holds available tools.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry. Callers register the
// tools they want the agent to see; nothing is implicit.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all tools in the function-calling format the model
// expects. Order is sorted by name so the prompt is stable across runs.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, name := range r.Names() {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with the given arguments. Arguments are
// validated against the tool's parameter schema before the handler runs,
// so handlers can trust required fields are present and typed.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", &ValidationError{Tool: name, Reason: "unknown tool"}
	}

	if err := ValidateArgs(tool.Parameters, args); err != nil {
		return "", &ValidationError{Tool: name, Reason: err.Error()}
	}

	out, err := tool.Handler(ctx, args)
	if err != nil {
		return "", &HandlerError{Tool: name, Err: err}
	}
	return out, nil
}

// ExecuteJSON is Execute with JSON-encoded arguments, for callers that
// receive raw argument strings off the wire.
func (r *Registry) ExecuteJSON(ctx context.Context, name string, argsJSON string) (string, error) {
	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("%s: invalid arguments: %w", name, err)
		}
	}
	return r.Execute(ctx, name, args)
}
