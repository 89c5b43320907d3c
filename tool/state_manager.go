package tool

import (
	"encoding/base64"
	"fmt"

	"github.com/agentlab-dev/agentlab/core"
)

// StateManagerTool exposes session state, agent flow control, memory and
// artifact operations to models through a single multiplexing tool. It is the
// reference example for how tools interact with ToolContext.
type StateManagerTool struct {
	name        string
	description string
}

// NewStateManagerTool creates a new state management tool.
func NewStateManagerTool() *StateManagerTool {
	return &StateManagerTool{
		name: "state_manager",
		description: "Manages session state, agent flow control, and framework integration. " +
			"Supports operations: get_state, set_state, transfer_agent, escalate, save_artifact, " +
			"load_artifact, search_memory, store_memory, list_artifacts.",
	}
}

// Name returns the tool identifier.
func (t *StateManagerTool) Name() string { return t.name }

// Description returns the tool description.
func (t *StateManagerTool) Description() string { return t.description }

// Parameters returns the JSON schema for tool parameters.
func (t *StateManagerTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []string{
					"get_state", "set_state", "transfer_agent", "escalate",
					"save_artifact", "load_artifact", "search_memory", "store_memory",
					"list_artifacts",
				},
				"description": "The state management operation to perform",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "State key for get_state/set_state operations",
			},
			"value": map[string]any{
				"description": "Value for set_state operations (any type)",
			},
			"agent_name": map[string]any{
				"type":        "string",
				"description": "Agent name for transfer_agent operation",
			},
			"artifact_id": map[string]any{
				"type":        "string",
				"description": "Artifact identifier for artifact operations",
			},
			"data": map[string]any{
				"type":        "string",
				"description": "Base64 encoded data for save_artifact operation",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "Search query for memory operations",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to store in memory",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Limit for search operations (default: 10)",
			},
		},
		"required": []string{"operation"},
	}
}

// Call dispatches to the requested operation.
func (t *StateManagerTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	operation, ok := args["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("operation parameter is required")
	}

	switch operation {
	case "get_state":
		key, ok := args["key"].(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("key parameter is required for get_state")
		}
		value, exists := toolCtx.GetState(key)
		return map[string]any{"key": key, "value": value, "exists": exists}, nil

	case "set_state":
		key, ok := args["key"].(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("key parameter is required for set_state")
		}
		toolCtx.SetState(key, args["value"])
		return map[string]any{"key": key, "stored": true}, nil

	case "transfer_agent":
		agentName, ok := args["agent_name"].(string)
		if !ok || agentName == "" {
			return nil, fmt.Errorf("agent_name parameter is required for transfer_agent")
		}
		toolCtx.TransferToAgent(agentName)
		return map[string]any{"transferred": true, "agent": agentName}, nil

	case "escalate":
		toolCtx.Escalate()
		return map[string]any{"escalated": true}, nil

	case "save_artifact":
		artifactID, ok := args["artifact_id"].(string)
		if !ok || artifactID == "" {
			return nil, fmt.Errorf("artifact_id parameter is required for save_artifact")
		}
		encoded, ok := args["data"].(string)
		if !ok {
			return nil, fmt.Errorf("data parameter is required for save_artifact")
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("data must be base64 encoded: %w", err)
		}
		if err := toolCtx.SaveArtifact(artifactID, data); err != nil {
			return nil, err
		}
		return map[string]any{"artifact_id": artifactID, "size": len(data)}, nil

	case "load_artifact":
		artifactID, ok := args["artifact_id"].(string)
		if !ok || artifactID == "" {
			return nil, fmt.Errorf("artifact_id parameter is required for load_artifact")
		}
		data, err := toolCtx.LoadArtifact(artifactID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"artifact_id": artifactID, "data": base64.StdEncoding.EncodeToString(data)}, nil

	case "list_artifacts":
		ids, err := toolCtx.ListArtifacts()
		if err != nil {
			return nil, err
		}
		return map[string]any{"artifacts": ids}, nil

	case "search_memory":
		query, _ := args["query"].(string)
		limit := 10
		if l, ok := args["limit"].(float64); ok && l > 0 {
			limit = int(l)
		}
		results, err := toolCtx.SearchMemory(query, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results, "count": len(results)}, nil

	case "store_memory":
		content, ok := args["content"].(string)
		if !ok || content == "" {
			return nil, fmt.Errorf("content parameter is required for store_memory")
		}
		if err := toolCtx.StoreMemory(content, map[string]any{"source": "state_manager"}); err != nil {
			return nil, err
		}
		return map[string]any{"stored": true}, nil

	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}
