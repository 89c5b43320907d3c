package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("GENERATION_MODEL", "")

	cfg := Load()
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, DefaultGenerationModel, cfg.GenerationModel)
	assert.Equal(t, DefaultProfile(), cfg.Profile)
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature: 0.2\nmax_retries: 5\n"), 0o644))

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, profile.Temperature, 1e-9)
	assert.Equal(t, 5, profile.MaxRetries)
	// unspecified fields keep defaults
	assert.Equal(t, int64(42), profile.Seed)
	assert.Equal(t, 120, profile.TimeoutSeconds)
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 7\n"), 0o644))

	cfg, err := LoadWithProfile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Profile.Seed)
}
