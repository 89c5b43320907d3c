package tool

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManagerTool_StateRoundTrip(t *testing.T) {
	sm := NewStateManagerTool()
	tc := newToolContext(t)

	result, err := sm.Call(tc, map[string]any{"operation": "set_state", "key": "color", "value": "blue"})
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]any)["stored"])

	result, err = sm.Call(tc, map[string]any{"operation": "get_state", "key": "color"})
	require.NoError(t, err)
	out := result.(map[string]any)
	assert.Equal(t, "blue", out["value"])
	assert.Equal(t, true, out["exists"])

	result, err = sm.Call(tc, map[string]any{"operation": "get_state", "key": "missing"})
	require.NoError(t, err)
	assert.Equal(t, false, result.(map[string]any)["exists"])
}

func TestStateManagerTool_FlowControl(t *testing.T) {
	sm := NewStateManagerTool()
	tc := newToolContext(t)

	_, err := sm.Call(tc, map[string]any{"operation": "transfer_agent", "agent_name": "billing"})
	require.NoError(t, err)
	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "billing", *tc.Actions().TransferToAgent)

	_, err = sm.Call(tc, map[string]any{"operation": "escalate"})
	require.NoError(t, err)
	require.NotNil(t, tc.Actions().Escalate)
	assert.True(t, *tc.Actions().Escalate)
}

func TestStateManagerTool_Artifacts(t *testing.T) {
	sm := NewStateManagerTool()
	tc := newToolContext(t)

	payload := base64.StdEncoding.EncodeToString([]byte("report contents"))
	result, err := sm.Call(tc, map[string]any{
		"operation": "save_artifact", "artifact_id": "report.txt", "data": payload,
	})
	require.NoError(t, err)
	assert.Equal(t, len("report contents"), result.(map[string]any)["size"])

	result, err = sm.Call(tc, map[string]any{"operation": "load_artifact", "artifact_id": "report.txt"})
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(result.(map[string]any)["data"].(string))
	require.NoError(t, err)
	assert.Equal(t, "report contents", string(decoded))

	result, err = sm.Call(tc, map[string]any{"operation": "list_artifacts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"report.txt"}, result.(map[string]any)["artifacts"])

	_, err = sm.Call(tc, map[string]any{
		"operation": "save_artifact", "artifact_id": "bad", "data": "not base64!!",
	})
	assert.Error(t, err)
}

func TestStateManagerTool_Memory(t *testing.T) {
	sm := NewStateManagerTool()
	tc := newToolContext(t)

	_, err := sm.Call(tc, map[string]any{"operation": "store_memory", "content": "user prefers metric units"})
	require.NoError(t, err)

	result, err := sm.Call(tc, map[string]any{"operation": "search_memory", "query": "metric"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.(map[string]any)["count"])
}

func TestStateManagerTool_InvalidOperations(t *testing.T) {
	sm := NewStateManagerTool()
	tc := newToolContext(t)

	_, err := sm.Call(tc, map[string]any{"operation": "teleport"})
	assert.ErrorContains(t, err, "unknown operation")

	_, err = sm.Call(tc, map[string]any{"operation": "get_state"})
	assert.ErrorContains(t, err, "key parameter is required")

	_, err = sm.Call(tc, map[string]any{})
	assert.ErrorContains(t, err, "operation parameter is required")
}
