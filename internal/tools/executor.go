package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mcnewcp/phda-logger/internal/llm"
)

// ToolResult is the outcome of one tool call, matched back to the call
// by ID.
type ToolResult struct {
	ID      string
	Name    string
	Content string

	// Failed marks results whose Content is an error message rather
	// than handler output. The agent feeds these back to the model so
	// it can correct itself.
	Failed bool
}

// Executor fans a batch of tool calls out to the registry and collects
// exactly one result per call.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewExecutor creates an executor. timeout bounds each individual
// handler; zero means no bound beyond the caller's context.
func NewExecutor(registry *Registry, timeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		registry: registry,
		timeout:  timeout,
		tracer:   noop.NewTracerProvider().Tracer(""),
		logger:   logger,
	}
}

// SetTracer installs a tracer for per-call spans.
func (e *Executor) SetTracer(t trace.Tracer) {
	e.tracer = t
}

// ExecuteAll runs every call concurrently and returns results in call
// order. A handler failure, an unknown tool, or bad arguments never
// fail the batch: the failure becomes that call's result. The returned
// slice always has len(calls) entries.
func (e *Executor) ExecuteAll(ctx context.Context, calls []llm.ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		id := call.ID
		if id == "" {
			// Some models omit call ids; assign one so the result can
			// still be matched to its originating call.
			id = newCallID()
		}

		wg.Add(1)
		go func(i int, id string, call llm.ToolCall) {
			defer wg.Done()
			results[i] = e.executeOne(ctx, id, call)
		}(i, id, call)
	}
	wg.Wait()

	return results
}

// EnsureCallIDs fills in missing tool-call ids in place so the
// assistant message and the tool results it produces share the same
// ids.
func EnsureCallIDs(calls []llm.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = newCallID()
		}
	}
}

// newCallID mints a time-ordered id so interleaved results still sort
// by issue order in logs and traces.
func newCallID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (e *Executor) executeOne(ctx context.Context, id string, call llm.ToolCall) ToolResult {
	name := call.Function.Name

	ctx, span := e.tracer.Start(ctx, "tool."+name,
		trace.WithAttributes(
			attribute.String("tool.name", name),
			attribute.String("tool.call_id", id),
		),
	)
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := e.registry.Execute(ctx, name, call.Function.Arguments)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("tool call failed",
			"tool", name,
			"call_id", id,
			"elapsed", elapsed,
			"error", err,
		)
		return ToolResult{
			ID:      id,
			Name:    name,
			Content: fmt.Sprintf("Error: %v", err),
			Failed:  true,
		}
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Debug("tool call complete",
		"tool", name,
		"call_id", id,
		"elapsed", elapsed,
		"result_bytes", len(content),
	)
	return ToolResult{ID: id, Name: name, Content: content}
}
