package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mcnewcp/phda-logger/internal/llm"
)

func newTestStore(t *testing.T, window int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "conv.db"), window)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	if err := s.Ensure(ctx, "conv1", "testuser"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	err := s.Append(ctx, "conv1",
		llm.Message{Role: "user", Content: "I did 20 min in the sauna"},
		llm.Message{Role: "assistant", Content: "Logged your sauna session."},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	msgs, err := s.Recent(ctx, "conv1")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = %q, %q; want user, assistant", msgs[0].Role, msgs[1].Role)
	}
}

func TestToolCallsRoundTrip(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	if err := s.Ensure(ctx, "conv1", "testuser"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	assistant := llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{{
			ID: "call-1",
			Function: llm.FunctionCall{
				Name:      "log_sauna",
				Arguments: map[string]any{"duration_min": float64(20)},
			},
		}},
	}
	result := llm.Message{Role: "tool", Content: `{"status":"logged"}`, ToolCallID: "call-1"}

	if err := s.Append(ctx, "conv1", assistant, result); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	msgs, err := s.Recent(ctx, "conv1")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}

	got := msgs[0]
	if len(got.ToolCalls) != 1 || got.ToolCalls[0].ID != "call-1" {
		t.Fatalf("tool calls did not survive: %+v", got.ToolCalls)
	}
	if got.ToolCalls[0].Function.Name != "log_sauna" {
		t.Errorf("function name = %q", got.ToolCalls[0].Function.Name)
	}
	if got.ToolCalls[0].Function.Arguments["duration_min"] != float64(20) {
		t.Errorf("arguments = %v", got.ToolCalls[0].Function.Arguments)
	}
	if msgs[1].ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %q, want call-1", msgs[1].ToolCallID)
	}
}

func TestRecentWindow(t *testing.T) {
	s := newTestStore(t, 5)
	ctx := context.Background()

	if err := s.Ensure(ctx, "conv1", "testuser"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	for i := range 12 {
		msg := llm.Message{Role: "user", Content: fmt.Sprintf("message %d", i)}
		if err := s.Append(ctx, "conv1", msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	msgs, err := s.Recent(ctx, "conv1")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("len(msgs) = %d, want 5", len(msgs))
	}
	if msgs[0].Content != "message 7" || msgs[4].Content != "message 11" {
		t.Errorf("window wrong: first %q, last %q", msgs[0].Content, msgs[4].Content)
	}
}

func TestRecentWindowDropsOrphanedToolResults(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	if err := s.Ensure(ctx, "conv1", "testuser"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	// The window boundary falls inside the tool group: the assistant
	// message that issued call-1 is outside it.
	err := s.Append(ctx, "conv1",
		llm.Message{Role: "user", Content: "sauna 20 min"},
		llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{{
			ID:       "call-1",
			Function: llm.FunctionCall{Name: "log_sauna", Arguments: map[string]any{"duration_min": float64(20)}},
		}}},
		llm.Message{Role: "tool", Content: `{"status":"logged"}`, ToolCallID: "call-1"},
		llm.Message{Role: "assistant", Content: "Logged your sauna session."},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	msgs, err := s.Recent(ctx, "conv1")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1 after dropping the orphaned tool result", len(msgs))
	}
	if msgs[0].Role != "assistant" || msgs[0].Content != "Logged your sauna session." {
		t.Errorf("msgs[0] = %+v, want the final assistant message", msgs[0])
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	if err := s.Ensure(ctx, "conv1", "testuser"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := s.Append(ctx, "conv1", llm.Message{Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := s.Clear(ctx, "conv1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	msgs, err := s.Recent(ctx, "conv1")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("len(msgs) = %d, want 0", len(msgs))
	}
}
