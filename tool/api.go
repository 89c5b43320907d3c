package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentlab-dev/agentlab/core"
)

// APIToolOptions configures the API tool.
type APIToolOptions struct {
	// AuthToken is sent as a bearer token on every request when set.
	AuthToken string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// APITool issues requests against a JSON REST API. The model picks the
// endpoint, method, query parameters and payload; the tool handles
// authentication, encoding and the error envelope. Useful for wiring an
// assistant to internal services like order or billing lookups.
type APITool struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewAPITool constructs an API tool rooted at the given base URL.
func NewAPITool(baseURL string, optFns ...func(o *APIToolOptions)) *APITool {
	opts := APIToolOptions{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &APITool{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: opts.AuthToken,
		client:    opts.HTTPClient,
	}
}

// Name returns the tool identifier.
func (t *APITool) Name() string { return "query_api" }

// Description returns the tool description shown to models.
func (t *APITool) Description() string {
	return "Make an HTTP request against the configured REST API (GET, POST, PUT or DELETE)."
}

// Parameters returns the JSON schema for tool parameters.
func (t *APITool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "API endpoint path, e.g. /orders/12345",
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method (GET, POST, PUT, DELETE)",
			},
			"params": map[string]any{
				"type":        "object",
				"description": "Query parameters for the request",
			},
			"data": map[string]any{
				"type":        "object",
				"description": "JSON payload for POST and PUT requests",
			},
		},
		"required": []string{"endpoint", "method"},
	}
}

// Call performs the request and returns the decoded response. Transport and
// encoding failures surface as tool errors; HTTP error statuses come back as
// an error envelope in the result so the model can relay them to the user.
func (t *APITool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	endpoint, ok := args["endpoint"].(string)
	if !ok || endpoint == "" {
		return nil, NewToolError(t.Name(), "field 'endpoint' must be a non-empty string", "VALIDATION_ERROR")
	}
	methodArg, ok := args["method"].(string)
	if !ok || methodArg == "" {
		return nil, NewToolError(t.Name(), "field 'method' must be a non-empty string", "VALIDATION_ERROR")
	}
	method := strings.ToUpper(methodArg)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, NewToolError(t.Name(), fmt.Sprintf("invalid HTTP method %q", methodArg), "VALIDATION_ERROR")
	}

	target := t.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if params, ok := args["params"].(map[string]any); ok && len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		target += "?" + q.Encode()
	}

	var body io.Reader
	if data, ok := args["data"].(map[string]any); ok && (method == http.MethodPost || method == http.MethodPut) {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("failed to encode request payload: %v", err), Code: "EXECUTION_ERROR"}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(tc.Context(), method, target, body)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.authToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("API request failed: %v", err), Code: "EXECUTION_ERROR"}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("failed to read API response: %v", err), Code: "EXECUTION_ERROR"}
	}

	// Bodies are usually JSON; keep the raw text when they are not.
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		data = string(raw)
	}

	tc.Logger().Debug("tool.api.request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return map[string]any{
			"error":       fmt.Sprintf("API returned status %d", resp.StatusCode),
			"status_code": resp.StatusCode,
			"data":        data,
		}, nil
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"data":        data,
	}, nil
}
