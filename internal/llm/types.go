// Package llm provides the model collaborator: chat message types and
// client implementations for tool-calling language models.
package llm

import "time"

// Message represents a chat message.
//
// The conversation log is strictly linear: a tool-role message always
// answers a tool call emitted by the immediately preceding assistant
// message, correlated by ToolCallID.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool call requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"` // Correlates the eventual tool result
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and untyped arguments.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResponse is the unified response from an LLM provider.
// Wire format conversion happens at provider boundaries (ollama.go).
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Message   Message
	Done      bool

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int

	// Timing (populated when available)
	TotalDuration time.Duration
}
