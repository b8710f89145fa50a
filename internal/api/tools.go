package api

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/stream"
)

// Tool names.
const (
	ToolTask      = "task"
	ToolWebSearch = "web_search"
)

// SpecialistToolNames lists the tools agents.yaml may grant a specialist.
func SpecialistToolNames() []string {
	return []string{ToolWebSearch}
}

// TaskTool returns the schema of the tool the orchestrator uses to dispatch
// a specialist. The specialist id is restricted to the registry's ids.
func TaskTool(reg *specialist.Registry) anthropic.ToolUnionParam {
	var lines strings.Builder
	for _, d := range reg.All() {
		fmt.Fprintf(&lines, "\n- %s: %s", d.ID, d.Description)
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name: ToolTask,
			Description: anthropic.String("Dispatch a specialist agent to analyse one aspect of the venture. " +
				"Put everything the founder has said so far into the description; the agent sees nothing else." +
				"\n\nAvailable agents:" + lines.String()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					stream.ArgSpecialist: map[string]interface{}{
						"type":        "string",
						"enum":        reg.IDs(),
						"description": "Which specialist to run",
					},
					stream.ArgDescription: map[string]interface{}{
						"type":        "string",
						"description": "The full task and context for the specialist",
					},
				},
				Required: []string{stream.ArgSpecialist, stream.ArgDescription},
			},
		},
	}
}

// WebSearchTool returns the web search schema.
func WebSearchTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name: ToolWebSearch,
			Description: anthropic.String("Search the web for current information on a topic. Use this to find " +
				"real data about markets, competitors, companies, funding rounds, industry trends, and other facts."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query",
					},
					"max_results": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of results (default 5)",
					},
					"topic": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"general", "news", "finance"},
						"description": "Search category (default general)",
					},
					"include_raw_content": map[string]interface{}{
						"type":        "boolean",
						"description": "Include full page content in results",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

// OrchestratorTools returns the orchestrator's tool set.
func OrchestratorTools(reg *specialist.Registry) []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{TaskTool(reg), WebSearchTool()}
}

// SpecialistTools returns the schemas for a specialist's granted tools.
// Names were validated when the registry was loaded.
func SpecialistTools(names []string) []anthropic.ToolUnionParam {
	var tools []anthropic.ToolUnionParam
	for _, name := range names {
		switch name {
		case ToolWebSearch:
			tools = append(tools, WebSearchTool())
		}
	}
	return tools
}
