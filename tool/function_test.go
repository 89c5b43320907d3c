package tool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab-dev/agentlab/core"
)

func sumTool() *FunctionTool {
	return NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
}

func TestFunctionTool_Call(t *testing.T) {
	result, err := sumTool().Call(newToolContext(t), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_MissingRequiredArg(t *testing.T) {
	_, err := sumTool().Call(newToolContext(t), map[string]any{"a": 2.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "b")
}

func TestFunctionTool_WrongArgType(t *testing.T) {
	_, err := sumTool().Call(newToolContext(t), map[string]any{"a": 2.0, "b": "three"})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionTool_WrapsPlainErrors(t *testing.T) {
	failing := NewFunctionTool("broken", "always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return nil, errors.New("downstream unavailable")
		},
	)

	_, err := failing.Call(newToolContext(t), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "downstream unavailable", toolErr.Message)
}

func TestFunctionTool_PreservesToolErrors(t *testing.T) {
	custom := NewToolError("quota", "limit reached", "QUOTA_EXCEEDED")
	failing := NewFunctionTool("quota", "rate limited",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return nil, custom
		},
	)

	_, err := failing.Call(newToolContext(t), map[string]any{})
	assert.Same(t, custom, err)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type searchArgs struct {
		Query string `json:"query" description:"Search query"`
		Limit int    `json:"limit,omitempty"`
	}

	st := NewFunctionToolFromStruct("search", "Search things", searchArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return args["query"], nil
		},
	)

	schema := st.Parameters()
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []string{"query"}, schema["required"])

	_, err := st.Call(newToolContext(t), map[string]any{"limit": 5})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}
