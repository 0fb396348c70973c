package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcnewcp/phda-logger/internal/agent"
	"github.com/mcnewcp/phda-logger/internal/llm"
	"github.com/mcnewcp/phda-logger/internal/memory"
	"github.com/mcnewcp/phda-logger/internal/tools"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []*llm.ChatResponse
	errs      []error
	calls     int
}

func (c *scriptedClient) Chat(context.Context, string, []llm.Message, []map[string]any) (*llm.ChatResponse, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.responses) {
		return nil, fmt.Errorf("scripted client exhausted")
	}
	return c.responses[i], nil
}

func (c *scriptedClient) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T, client llm.Client) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := tools.NewRegistry()
	exec := tools.NewExecutor(reg, time.Second, logger)
	ctrl := agent.New(logger, client, reg, exec, agent.Options{Model: "qwen2.5:7b", MaxIterations: 4})

	conv, err := memory.Open(filepath.Join(t.TempDir(), "conv.db"), 0)
	if err != nil {
		t.Fatalf("memory.Open() error = %v", err)
	}
	t.Cleanup(func() { conv.Close() })

	srv := NewServer("127.0.0.1:0", ctrl, conv, "testuser", logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postLog(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/log", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/log error = %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestHandleLog(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		{Message: llm.Message{Role: "assistant", Content: "Logged your sauna session."}, Done: true},
	}}
	ts := newTestServer(t, client)

	resp, body := postLog(t, ts, `{"message": "20 min sauna just now"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["response"] != "Logged your sauna session." {
		t.Errorf("response = %v", body["response"])
	}
	if body["conversation_id"] == "" || body["conversation_id"] == nil {
		t.Error("conversation_id missing")
	}
	if body["iterations"] != float64(1) {
		t.Errorf("iterations = %v, want 1", body["iterations"])
	}
}

func TestHandleLog_EmptyMessage(t *testing.T) {
	ts := newTestServer(t, &scriptedClient{})

	resp, body := postLog(t, ts, `{"message": ""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["kind"] != "invalid_request" {
		t.Errorf("error kind = %v, want invalid_request", errObj["kind"])
	}
}

func TestHandleLog_ModelErrorKind(t *testing.T) {
	client := &scriptedClient{errs: []error{fmt.Errorf("connection refused")}}
	ts := newTestServer(t, client)

	resp, body := postLog(t, ts, `{"message": "log a thing"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["kind"] != "model_error" {
		t.Errorf("error kind = %v, want model_error", errObj["kind"])
	}
}

func TestHandleLog_IterationLimitKind(t *testing.T) {
	// The model requests tools on every iteration; the turn must fail
	// with the distinct iteration_limit kind, not a 200.
	loop := &llm.ChatResponse{
		Message: llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{{
			ID:       "call-x",
			Function: llm.FunctionCall{Name: "log_sauna"},
		}}},
		Done: true,
	}
	client := &scriptedClient{responses: []*llm.ChatResponse{
		loop, loop, loop, loop,
		{Message: llm.Message{Role: "assistant", Content: "I could not finish."}, Done: true},
	}}
	ts := newTestServer(t, client)

	resp, body := postLog(t, ts, `{"message": "log forever"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["kind"] != "iteration_limit" {
		t.Errorf("error kind = %v, want iteration_limit", errObj["kind"])
	}
}

func TestHandleLog_ConversationContinuity(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		{Message: llm.Message{Role: "assistant", Content: "What was the duration?"}, Done: true},
		{Message: llm.Message{Role: "assistant", Content: "Logged 20 minutes."}, Done: true},
	}}
	ts := newTestServer(t, client)

	_, first := postLog(t, ts, `{"message": "I did a sauna"}`)
	convID, _ := first["conversation_id"].(string)
	if convID == "" {
		t.Fatal("conversation_id missing from first response")
	}

	resp, second := postLog(t, ts, fmt.Sprintf(`{"message": "20 minutes", "conversation_id": %q}`, convID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if second["conversation_id"] != convID {
		t.Errorf("conversation_id = %v, want %q", second["conversation_id"], convID)
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, &scriptedClient{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/v1/version")
	if err != nil {
		t.Fatalf("GET /v1/version error = %v", err)
	}
	defer resp2.Body.Close()
	var info map[string]string
	if err := json.NewDecoder(resp2.Body).Decode(&info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info["version"] == "" {
		t.Error("version missing from /v1/version")
	}
}

func TestConversationClear(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		{Message: llm.Message{Role: "assistant", Content: "ok"}, Done: true},
	}}
	ts := newTestServer(t, client)

	_, body := postLog(t, ts, `{"message": "hello"}`)
	convID, _ := body["conversation_id"].(string)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/conversations/"+convID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}
