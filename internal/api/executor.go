package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/validator/internal/search"
	"github.com/ShayCichocki/validator/internal/stream"
)

// Searcher answers web_search calls.
type Searcher interface {
	Run(ctx context.Context, req search.Request) (string, error)
}

// SpecialistRunner answers task calls.
type SpecialistRunner interface {
	RunSpecialist(ctx context.Context, id, description string) (string, error)
}

// ToolExecutor executes tool calls requested by a model.
type ToolExecutor struct {
	search      Searcher
	specialists SpecialistRunner
}

// NewToolExecutor returns an executor. A nil runner leaves the task tool
// unavailable, which is how specialists are kept from dispatching others.
func NewToolExecutor(s Searcher, r SpecialistRunner) *ToolExecutor {
	return &ToolExecutor{search: s, specialists: r}
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	Content string
	IsError bool
}

// Execute runs a tool by name with the given JSON input.
func (e *ToolExecutor) Execute(ctx context.Context, name string, input json.RawMessage) ToolResult {
	switch {
	case name == ToolWebSearch && e.search != nil:
		return e.execWebSearch(ctx, input)
	case name == ToolTask && e.specialists != nil:
		return e.execTask(ctx, input)
	default:
		return ToolResult{Content: fmt.Sprintf("Unknown tool: %s", name), IsError: true}
	}
}

func (e *ToolExecutor) execWebSearch(ctx context.Context, input json.RawMessage) ToolResult {
	var req search.Request
	if err := json.Unmarshal(input, &req); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}
	out, err := e.search.Run(ctx, req)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Web search failed: %v", err), IsError: true}
	}
	return ToolResult{Content: out}
}

func (e *ToolExecutor) execTask(ctx context.Context, input json.RawMessage) ToolResult {
	var params map[string]any
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}
	id, _ := params[stream.ArgSpecialist].(string)
	description, _ := params[stream.ArgDescription].(string)
	if id == "" {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %s is required", stream.ArgSpecialist), IsError: true}
	}

	out, err := e.specialists.RunSpecialist(ctx, id, description)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Agent %s failed: %v", id, err), IsError: true}
	}
	return ToolResult{Content: out}
}
