// Package config loads application configuration from the environment,
// optionally seeded from a .env file, plus an optional YAML generation
// profile.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default model names.
const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAnthropicModel  = "claude-sonnet-4-20250514"
	DefaultGenerationModel = "mistralai/Mixtral-8x7B-Instruct-v0.1"
	DefaultEmbeddingModel  = "text-embedding-3-small"
)

// Config holds API credentials and model selections.
type Config struct {
	OpenAIAPIKey         string
	AnthropicAPIKey      string
	TogetherAIAPIKey     string
	OpenWeatherMapAPIKey string

	OpenAIModel     string
	AnthropicModel  string
	GenerationModel string
	EmbeddingModel  string

	Profile Profile
}

// Profile tunes generation behavior, typically loaded from a YAML file.
type Profile struct {
	Temperature    float64 `yaml:"temperature"`
	Seed           int64   `yaml:"seed"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
}

// DefaultProfile returns the generation profile used when no YAML file is
// provided.
func DefaultProfile() Profile {
	return Profile{
		Temperature:    0.7,
		Seed:           42,
		TimeoutSeconds: 120,
		MaxRetries:     3,
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; already-set environment variables
// win over .env values.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		TogetherAIAPIKey:     os.Getenv("TOGETHERAI_API_KEY"),
		OpenWeatherMapAPIKey: os.Getenv("OPENWEATHERMAP_API_KEY"),
		OpenAIModel:          envOr("OPENAI_MODEL", DefaultOpenAIModel),
		AnthropicModel:       envOr("ANTHROPIC_MODEL", DefaultAnthropicModel),
		GenerationModel:      envOr("GENERATION_MODEL", DefaultGenerationModel),
		EmbeddingModel:       envOr("EMBEDDING_MODEL", DefaultEmbeddingModel),
		Profile:              DefaultProfile(),
	}
}

// LoadWithProfile loads the environment configuration plus a YAML
// generation profile.
func LoadWithProfile(profilePath string) (*Config, error) {
	cfg := Load()

	profile, err := LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	cfg.Profile = profile
	return cfg, nil
}

// LoadProfile reads a generation profile from a YAML file. Missing fields
// keep their defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return profile, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
