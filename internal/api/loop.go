package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/tracing"
)

// AgentLoop runs one specialist to completion: call the model, execute the
// tools it asks for, repeat until it ends its turn.
type AgentLoop struct {
	client        *Client
	executor      *ToolExecutor
	tracer        trace.Tracer
	maxIterations int
	maxTokens     int64
	log           *slog.Logger
}

// LoopResult contains the results of an agent loop execution.
type LoopResult struct {
	Output     string
	TokensIn   int64
	TokensOut  int64
	ToolCalls  int
	Iterations int
}

// AgentLoopConfig contains configuration for the agent loop.
type AgentLoopConfig struct {
	Client *Client
	// Executor runs the specialist's tools. It must not offer the task tool.
	Executor      *ToolExecutor
	Tracer        trace.Tracer
	MaxIterations int
	MaxTokens     int
	Logger        *slog.Logger
}

// NewAgentLoop creates a new agent loop with the given configuration.
func NewAgentLoop(cfg AgentLoopConfig) *AgentLoop {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.Disabled().Tracer()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &AgentLoop{
		client:        cfg.Client,
		executor:      cfg.Executor,
		tracer:        tracer,
		maxIterations: maxIter,
		maxTokens:     maxTokens,
		log:           log,
	}
}

// Run executes the specialist described by d on task.
func (l *AgentLoop) Run(ctx context.Context, d specialist.Descriptor, task string) (*LoopResult, error) {
	ctx, span := l.tracer.Start(ctx, "specialist."+d.ID,
		trace.WithAttributes(tracing.AttrSpecialist.String(d.ID), tracing.AttrModel.String(d.Model)))
	defer span.End()

	result := &LoopResult{}
	tools := SpecialistTools(d.Tools)
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(task)),
	}

	for result.Iterations < l.maxIterations {
		result.Iterations++

		resp, err := l.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
			Model:     l.client.Model(d.Model),
			MaxTokens: l.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: d.SystemPrompt},
			},
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "API call failed")
			return result, fmt.Errorf("API call failed: %w", err)
		}

		result.TokensIn += resp.Usage.InputTokens
		result.TokensOut += resp.Usage.OutputTokens
		l.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var text strings.Builder

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				text.WriteString(variant.Text)
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				result.ToolCalls++
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				l.log.Debug("specialist tool call", "agent", d.ID, "tool", variant.Name)
				toolResult := l.executor.Execute(ctx, variant.Name, variant.Input)
				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, toolResult.Content, toolResult.IsError))
			}
		}

		if resp.StopReason != anthropic.StopReasonToolUse || len(toolResultBlocks) == 0 {
			result.Output = text.String()
			span.SetAttributes(
				tracing.AttrInputTok.Int64(result.TokensIn),
				tracing.AttrOutputTok.Int64(result.TokensOut),
			)
			return result, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
	}

	err := fmt.Errorf("%w (%d)", ErrMaxIterations, l.maxIterations)
	span.SetStatus(codes.Error, err.Error())
	return result, err
}

// Specialists runs registry specialists by id for the task tool.
type Specialists struct {
	registry *specialist.Registry
	loop     *AgentLoop
}

// NewSpecialists binds a registry to a loop.
func NewSpecialists(reg *specialist.Registry, loop *AgentLoop) *Specialists {
	return &Specialists{registry: reg, loop: loop}
}

// RunSpecialist runs the specialist id on description and returns its answer.
func (s *Specialists) RunSpecialist(ctx context.Context, id, description string) (string, error) {
	d, ok := s.registry.Get(id)
	if !ok {
		return "", fmt.Errorf("unknown agent %q", id)
	}
	res, err := s.loop.Run(ctx, d, description)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}
