package tool

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agentlab-dev/agentlab/core"
)

const openWeatherMapURL = "https://api.openweathermap.org/data/2.5/weather"

// WeatherToolOptions configures the weather tool.
type WeatherToolOptions struct {
	// BaseURL overrides the OpenWeatherMap endpoint (used in tests).
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// WeatherTool fetches current weather conditions for a city from the
// OpenWeatherMap API and condenses them into a single sentence the model can
// relay to the user.
type WeatherTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherTool constructs a weather tool with the given API key.
func NewWeatherTool(apiKey string, optFns ...func(o *WeatherToolOptions)) *WeatherTool {
	opts := WeatherToolOptions{
		BaseURL:    openWeatherMapURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WeatherTool{apiKey: apiKey, baseURL: opts.BaseURL, client: opts.HTTPClient}
}

// Name returns the tool identifier.
func (t *WeatherTool) Name() string { return "get_weather" }

// Description returns the tool description shown to models.
func (t *WeatherTool) Description() string {
	return "Get the current weather for a city (conditions, temperature, humidity and wind speed)."
}

// Parameters returns the JSON schema for tool parameters.
func (t *WeatherTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": "City name, e.g. Berlin or New York",
			},
		},
		"required": []string{"city"},
	}
}

// weatherResponse mirrors the subset of the OpenWeatherMap payload we use.
type weatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

// Call queries the weather API and returns a condensed summary.
func (t *WeatherTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	city, ok := args["city"].(string)
	if !ok || city == "" {
		return nil, NewToolError(t.Name(), "field 'city' must be a non-empty string", "VALIDATION_ERROR")
	}

	if t.apiKey == "" {
		return nil, NewToolError(t.Name(), "weather API key not configured", "EXECUTION_ERROR")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", t.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(tc.Context(), http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("weather request failed: %v", err), Code: "EXECUTION_ERROR"}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("weather API returned status %d", resp.StatusCode), Code: "EXECUTION_ERROR"}
	}

	var wr weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("failed to decode weather response: %v", err), Code: "EXECUTION_ERROR"}
	}

	description := "unknown conditions"
	if len(wr.Weather) > 0 {
		description = wr.Weather[0].Description
	}

	summary := fmt.Sprintf(
		"Current weather in %s: %s, temperature %.1f°C, humidity %.0f%%, wind speed %.1f m/s.",
		city, description, wr.Main.Temp, wr.Main.Humidity, wr.Wind.Speed,
	)

	tc.Logger().Debug("tool.weather.fetched", "city", city)

	return map[string]any{
		"city":        city,
		"description": description,
		"temperature": wr.Main.Temp,
		"humidity":    wr.Main.Humidity,
		"wind_speed":  wr.Wind.Speed,
		"summary":     summary,
	}, nil
}
