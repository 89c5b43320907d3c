package rag

import (
	"strings"

	"github.com/agentlab-dev/agentlab/core"
	"github.com/agentlab-dev/agentlab/tool"
)

// RetrievalTool exposes a Pipeline to agents as a callable tool named
// search_and_generate, so models can query the knowledge base themselves.
type RetrievalTool struct {
	pipeline *Pipeline
}

var _ tool.Tool = (*RetrievalTool)(nil)

// NewRetrievalTool wraps the pipeline in a tool.
func NewRetrievalTool(pipeline *Pipeline) *RetrievalTool {
	return &RetrievalTool{pipeline: pipeline}
}

// Name returns the tool identifier.
func (t *RetrievalTool) Name() string { return "search_and_generate" }

// Description returns the tool description shown to models.
func (t *RetrievalTool) Description() string {
	return "Search the knowledge base and generate a response grounded in the retrieved documents."
}

// Parameters returns the JSON schema for tool parameters.
func (t *RetrievalTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The user's query",
			},
		},
		"required": []string{"query"},
	}
}

// Call runs the retrieve-and-generate pipeline for the query argument.
func (t *RetrievalTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, tool.NewToolError(t.Name(), "field 'query' must be a non-empty string", "VALIDATION_ERROR")
	}

	answer, err := t.pipeline.Answer(toolCtx.Context(), query)
	if err != nil {
		return nil, tool.NewToolError(t.Name(), err.Error(), "EXECUTION_ERROR")
	}
	return answer, nil
}
