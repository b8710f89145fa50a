package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/stream"
	"github.com/ShayCichocki/validator/internal/tracing"
	"github.com/ShayCichocki/validator/pkg/models"
)

// ErrMaxIterations is returned when a model keeps requesting tools past the
// iteration cap.
var ErrMaxIterations = errors.New("max iterations reached")

// Nodes the engine reports on its events.
const (
	NodeModel = stream.DefaultOrchestratorNode
	NodeTools = "tools"
)

// EngineConfig wires an Engine.
type EngineConfig struct {
	Client   *Client
	Registry *specialist.Registry
	Plan     *specialist.Plan
	Search   Searcher
	Tracer   trace.Tracer
	// MaxIterations caps model round-trips per turn and per specialist.
	MaxIterations int
	MaxTokens     int
	Logger        *slog.Logger
}

// Engine runs orchestrator turns. It is safe for concurrent use; each turn
// keeps its own state.
type Engine struct {
	client        *Client
	registry      *specialist.Registry
	model         string
	systemPrompt  string
	tools         []anthropic.ToolUnionParam
	executor      *ToolExecutor
	tracer        trace.Tracer
	maxIterations int
	maxTokens     int64
	log           *slog.Logger
}

// NewEngine builds an engine from cfg.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Client == nil || cfg.Registry == nil || cfg.Plan == nil {
		return nil, fmt.Errorf("engine needs a client, a registry and a plan")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.Disabled().Tracer()
	}

	loop := NewAgentLoop(AgentLoopConfig{
		Client:        cfg.Client,
		Executor:      NewToolExecutor(cfg.Search, nil),
		Tracer:        tracer,
		MaxIterations: cfg.MaxIterations,
		MaxTokens:     cfg.MaxTokens,
		Logger:        log,
	})

	return &Engine{
		client:        cfg.Client,
		registry:      cfg.Registry,
		model:         cfg.Plan.Model(),
		systemPrompt:  cfg.Plan.SystemPrompt(cfg.Registry),
		tools:         OrchestratorTools(cfg.Registry),
		executor:      NewToolExecutor(cfg.Search, NewSpecialists(cfg.Registry, loop)),
		tracer:        tracer,
		maxIterations: loop.maxIterations,
		maxTokens:     loop.maxTokens,
		log:           log,
	}, nil
}

// SystemPrompt returns the assembled orchestrator prompt.
func (e *Engine) SystemPrompt() string {
	return e.systemPrompt
}

// Turn is one founder message with the conversation so far.
type Turn struct {
	SessionID string
	ThreadID  string
	History   []models.Message
	Message   string
}

// Run is a turn in progress. Events must be drained until closed.
type Run struct {
	events chan stream.Event
	done   chan struct{}
	err    error
}

// Events returns the turn's provider events in order. The channel closes
// when the turn ends.
func (r *Run) Events() <-chan stream.Event {
	return r.events
}

// Wait blocks until the turn ends and returns its error.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Start begins a turn. Cancelling ctx stops the model and any running
// specialists.
func (e *Engine) Start(ctx context.Context, turn Turn) *Run {
	r := &Run{
		events: make(chan stream.Event, 64),
		done:   make(chan struct{}),
	}
	go func() {
		r.err = e.run(ctx, turn, r.events)
		close(r.events)
		close(r.done)
	}()
	return r
}

// Replay returns a finished-in-advance run that yields events and then ends
// with err. It stands in for a live turn when events come from a recording.
func Replay(events []stream.Event, err error) *Run {
	r := &Run{
		events: make(chan stream.Event, len(events)),
		done:   make(chan struct{}),
		err:    err,
	}
	for _, e := range events {
		r.events <- e
	}
	close(r.events)
	close(r.done)
	return r
}

func (e *Engine) run(ctx context.Context, turn Turn, out chan<- stream.Event) error {
	ctx, span := tracing.StartTurn(ctx, e.tracer, turn.SessionID, turn.ThreadID)
	defer span.End()

	emit := func(ev stream.Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	messages := historyParams(turn.History)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Message)))

	for i := 0; i < e.maxIterations; i++ {
		if err := emit(stream.NodeMarker{Node: NodeModel}); err != nil {
			return err
		}
		resp, err := e.streamModel(ctx, messages, emit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "model call failed")
			return err
		}
		messages = append(messages, resp.param())

		calls := resp.toolCalls()
		if len(calls) == 0 || resp.stopReason != anthropic.StopReasonToolUse {
			return nil
		}

		if err := emit(stream.NodeMarker{Node: NodeTools}); err != nil {
			return err
		}
		results, err := e.runTools(ctx, calls)
		if err != nil {
			return err
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(calls))
		for j, c := range calls {
			if err := emit(stream.ToolResult{
				Node:         NodeTools,
				InvocationID: c.id,
				Tool:         c.name,
				Content:      results[j].Content,
				IsError:      results[j].IsError,
			}); err != nil {
				return err
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(c.id, results[j].Content, results[j].IsError))
		}
		messages = append(messages, anthropic.NewUserMessage(blocks...))
	}

	err := fmt.Errorf("%w (%d)", ErrMaxIterations, e.maxIterations)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// runTools executes calls concurrently and returns results in call order.
// Tool failures become error results; only cancellation fails the batch.
func (e *Engine) runTools(ctx context.Context, calls []*block) ([]ToolResult, error) {
	results := make([]ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range calls {
		g.Go(func() error {
			tctx, span := e.tracer.Start(gctx, "tool."+c.name, trace.WithAttributes(tracing.AttrTool.String(c.name)))
			defer span.End()

			e.log.Debug("running tool", "tool", c.name, "id", c.id)
			results[i] = e.executor.Execute(tctx, c.name, c.input())
			if results[i].IsError {
				span.SetStatus(codes.Error, results[i].Content)
				e.log.Warn("tool failed", "tool", c.name, "id", c.id, "error", results[i].Content)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// block is one content block assembled from stream deltas.
type block struct {
	kind string
	id   string
	name string
	text strings.Builder
	args strings.Builder
}

func (b *block) input() json.RawMessage {
	raw := strings.TrimSpace(b.args.String())
	if raw == "" || !json.Valid([]byte(raw)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

// modelResponse is one streamed assistant message.
type modelResponse struct {
	blocks     []*block
	stopReason anthropic.StopReason
}

func (m *modelResponse) param() anthropic.MessageParam {
	var content []anthropic.ContentBlockParamUnion
	for _, b := range m.blocks {
		switch b.kind {
		case "text":
			if b.text.Len() > 0 {
				content = append(content, anthropic.NewTextBlock(b.text.String()))
			}
		case "tool_use":
			content = append(content, anthropic.NewToolUseBlock(b.id, b.input(), b.name))
		}
	}
	if len(content) == 0 {
		content = append(content, anthropic.NewTextBlock("(no response)"))
	}
	return anthropic.NewAssistantMessage(content...)
}

func (m *modelResponse) toolCalls() []*block {
	var calls []*block
	for _, b := range m.blocks {
		if b.kind == "tool_use" {
			calls = append(calls, b)
		}
	}
	return calls
}

// streamModel runs one streaming orchestrator call, emitting text deltas,
// tool-call starts and argument fragments as they arrive.
func (e *Engine) streamModel(ctx context.Context, messages []anthropic.MessageParam, emit func(stream.Event) error) (*modelResponse, error) {
	ctx, span := e.tracer.Start(ctx, "model.call", trace.WithAttributes(tracing.AttrModel.String(e.model)))
	defer span.End()

	s := e.client.sdk().Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     e.client.Model(e.model),
		MaxTokens: e.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: e.systemPrompt},
		},
		Messages: messages,
		Tools:    e.tools,
	})
	defer s.Close()

	resp := &modelResponse{}
	byIndex := map[int64]*block{}
	var inputTok, outputTok int64

	for s.Next() {
		switch ev := s.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			inputTok = ev.Message.Usage.InputTokens

		case anthropic.ContentBlockStartEvent:
			b := &block{kind: string(ev.ContentBlock.Type), id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
			byIndex[ev.Index] = b
			resp.blocks = append(resp.blocks, b)
			if b.kind == "tool_use" {
				if err := emit(stream.ToolCallStart{
					Node:  NodeModel,
					Calls: []stream.ToolCall{{ID: b.id, Name: b.name}},
				}); err != nil {
					return nil, err
				}
			}

		case anthropic.ContentBlockDeltaEvent:
			b := byIndex[ev.Index]
			if b == nil {
				continue
			}
			switch d := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				b.text.WriteString(d.Text)
				if err := emit(stream.TextDelta{Node: NodeModel, Text: d.Text}); err != nil {
					return nil, err
				}
			case anthropic.InputJSONDelta:
				b.args.WriteString(d.PartialJSON)
				if err := emit(stream.ToolCallFragment{
					Node:   NodeModel,
					Chunks: []stream.ArgChunk{{ID: b.id, Args: d.PartialJSON}},
				}); err != nil {
					return nil, err
				}
			}

		case anthropic.MessageDeltaEvent:
			resp.stopReason = ev.Delta.StopReason
			outputTok = ev.Usage.OutputTokens
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("stream model: %w", err)
	}

	e.client.Tracker().Add(inputTok, outputTok)
	span.SetAttributes(tracing.AttrInputTok.Int64(inputTok), tracing.AttrOutputTok.Int64(outputTok))
	return resp, nil
}

// historyParams converts a stored transcript into API messages. Empty
// messages are dropped since the API rejects them.
func historyParams(history []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
