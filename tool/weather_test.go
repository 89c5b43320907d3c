package tool

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherTool_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Berlin", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		fmt.Fprint(w, `{
			"weather": [{"description": "light rain"}],
			"main": {"temp": 14.3, "humidity": 82},
			"wind": {"speed": 5.1},
			"name": "Berlin"
		}`)
	}))
	defer srv.Close()

	wt := NewWeatherTool("test-key", func(o *WeatherToolOptions) {
		o.BaseURL = srv.URL
	})

	result, err := wt.Call(newToolContext(t), map[string]any{"city": "Berlin"})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, "light rain", out["description"])
	assert.InDelta(t, 14.3, out["temperature"].(float64), 1e-9)
	assert.Contains(t, out["summary"], "light rain")
	assert.Contains(t, out["summary"], "14.3")
}

func TestWeatherTool_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	wt := NewWeatherTool("bad-key", func(o *WeatherToolOptions) {
		o.BaseURL = srv.URL
	})

	_, err := wt.Call(newToolContext(t), map[string]any{"city": "Berlin"})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "401")
}

func TestWeatherTool_Validation(t *testing.T) {
	wt := NewWeatherTool("test-key")

	var toolErr *ToolError
	_, err := wt.Call(newToolContext(t), map[string]any{})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)

	missingKey := NewWeatherTool("")
	_, err = missingKey.Call(newToolContext(t), map[string]any{"city": "Berlin"})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestTransferToAgentTool(t *testing.T) {
	tc := newToolContext(t)

	result, err := NewTransferToAgentTool().Call(tc, map[string]any{"agent": "researcher"})
	require.NoError(t, err)
	assert.Equal(t, "researcher", result.(map[string]any)["agent"])
	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "researcher", *tc.Actions().TransferToAgent)

	_, err = NewTransferToAgentTool().Call(newToolContext(t), map[string]any{"agent": ""})
	assert.Error(t, err)
}
