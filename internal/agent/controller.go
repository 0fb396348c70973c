// Package agent runs the tool-calling loop that turns a natural
// language health report into persisted records.
//
// Each turn walks an explicit state machine: the controller is waiting
// on the model, waiting on tool execution, done, or failed. The model
// is never re-entered until every tool call from its last response has
// a matching result.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mcnewcp/phda-logger/internal/llm"
	"github.com/mcnewcp/phda-logger/internal/tools"
)

// State is the controller's position in the turn lifecycle.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateAwaitingTools State = "awaiting_tools"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Result is the outcome of one agent turn.
type Result struct {
	Content      string
	State        State
	Iterations   int
	InputTokens  int
	OutputTokens int

	// NewMessages are the messages this turn added beyond the supplied
	// history, in order: the user message, every assistant message,
	// and every tool result. Callers persist these for the next turn.
	NewMessages []llm.Message
}

// Options configure a Controller.
type Options struct {
	Model         string
	MaxIterations int
	ModelTimeout  time.Duration
	Location      *time.Location
}

// Controller drives the model/tool loop.
type Controller struct {
	logger   *slog.Logger
	client   llm.Client
	registry *tools.Registry
	executor *tools.Executor
	tracer   trace.Tracer
	opts     Options
	now      func() time.Time
}

// New creates a controller.
func New(logger *slog.Logger, client llm.Client, registry *tools.Registry, executor *tools.Executor, opts Options) *Controller {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 8
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Controller{
		logger:   logger,
		client:   client,
		registry: registry,
		executor: executor,
		tracer:   noop.NewTracerProvider().Tracer(""),
		opts:     opts,
		now:      time.Now,
	}
}

// SetTracer installs a tracer for per-turn and per-model-call spans.
// The executor's tracer is managed separately.
func (c *Controller) SetTracer(t trace.Tracer) {
	c.tracer = t
}

// Run executes one turn: the user's message against the supplied
// history. It returns a ModelError if the model cannot be reached and
// an IterationLimitError if the turn exceeds the iteration bound.
// Both failures leave the supplied history untouched, so callers may
// retry the whole turn.
func (c *Controller) Run(ctx context.Context, history []llm.Message, userMessage string) (*Result, error) {
	runID := newRunID()

	ctx, span := c.tracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.run_id", runID),
			attribute.String("llm.model", c.opts.Model),
		),
	)
	defer span.End()

	toolDefs := c.registry.List()

	userMsg := llm.Message{Role: "user", Content: userMessage}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt(c.now().In(c.opts.Location))})
	messages = append(messages, history...)
	messages = append(messages, userMsg)

	res := &Result{
		State:       StateAwaitingModel,
		NewMessages: []llm.Message{userMsg},
	}

	c.logger.Info("agent turn started",
		"run_id", runID,
		"model", c.opts.Model,
		"history_msgs", len(history),
		"tools_available", len(toolDefs),
	)

	for i := range c.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			res.State = StateFailed
			span.SetStatus(codes.Error, err.Error())
			return nil, &ModelError{Iteration: i, Err: err}
		}

		res.State = StateAwaitingModel
		resp, err := c.chat(ctx, runID, i, messages, toolDefs)
		if err != nil {
			res.State = StateFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, &ModelError{Iteration: i, Err: err}
		}

		res.Iterations = i + 1
		res.InputTokens += resp.InputTokens
		res.OutputTokens += resp.OutputTokens

		if len(resp.Message.ToolCalls) == 0 {
			messages = append(messages, resp.Message)
			res.NewMessages = append(res.NewMessages, resp.Message)
			res.Content = resp.Message.Content
			res.State = StateDone
			span.SetAttributes(attribute.Int("agent.iterations", res.Iterations))
			span.SetStatus(codes.Ok, "")
			c.logger.Info("agent turn complete",
				"run_id", runID,
				"iterations", res.Iterations,
				"input_tokens", res.InputTokens,
				"output_tokens", res.OutputTokens,
			)
			return res, nil
		}

		res.State = StateAwaitingTools
		tools.EnsureCallIDs(resp.Message.ToolCalls)
		messages = append(messages, resp.Message)
		res.NewMessages = append(res.NewMessages, resp.Message)

		c.logger.Info("agent executing tools",
			"run_id", runID,
			"iter", i,
			"tool_calls", len(resp.Message.ToolCalls),
		)

		results := c.executor.ExecuteAll(ctx, resp.Message.ToolCalls)
		for _, tr := range results {
			toolMsg := llm.Message{
				Role:       "tool",
				Content:    tr.Content,
				ToolCallID: tr.ID,
			}
			messages = append(messages, toolMsg)
			res.NewMessages = append(res.NewMessages, toolMsg)
		}
	}

	// Iteration bound exceeded. The turn fails regardless; a last
	// text-only call salvages a closing statement for telemetry, but
	// never converts the failure into success.
	c.logger.Warn("agent iteration limit reached",
		"run_id", runID,
		"max_iterations", c.opts.MaxIterations,
	)
	res.State = StateFailed

	limitErr := &IterationLimitError{Iterations: c.opts.MaxIterations}
	if resp, err := c.chat(ctx, runID, c.opts.MaxIterations, messages, nil); err != nil {
		limitErr.Err = err
	} else {
		limitErr.Summary = resp.Message.Content
	}

	span.RecordError(limitErr)
	span.SetAttributes(attribute.Int("agent.iterations", res.Iterations))
	span.SetStatus(codes.Error, limitErr.Error())
	return nil, limitErr
}

// chat makes one bounded model call under its own span.
func (c *Controller) chat(ctx context.Context, runID string, iter int, messages []llm.Message, toolDefs []map[string]any) (*llm.ChatResponse, error) {
	ctx, span := c.tracer.Start(ctx, "llm.chat",
		trace.WithAttributes(
			attribute.String("agent.run_id", runID),
			attribute.Int("agent.iteration", iter),
			attribute.String("llm.model", c.opts.Model),
			attribute.Int("llm.message_count", len(messages)),
		),
	)
	defer span.End()

	if c.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ModelTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.Chat(ctx, c.opts.Model, messages, toolDefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.InputTokens),
		attribute.Int("llm.output_tokens", resp.OutputTokens),
		attribute.Int("llm.tool_calls", len(resp.Message.ToolCalls)),
	)
	span.SetStatus(codes.Ok, "")

	c.logger.Debug("model response",
		"run_id", runID,
		"iter", iter,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"tool_calls", len(resp.Message.ToolCalls),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return resp, nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
