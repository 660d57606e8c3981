package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Catalog.PowerRecipes)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	assert.Equal(t, "factory-planner", cfg.Tracing.ServiceName)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, 4, cfg.Analyze.BusyThreshold)
	assert.Equal(t, 50, cfg.Analyze.TopN)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	content := `
db:
  path: /tmp/factory.db
catalog:
  path: data/game.json
  power_recipes: false
log:
  level: debug
  format: json
tracing:
  endpoint: localhost:4317
  sample_rate: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/factory.db", cfg.DB.Path)
	assert.Equal(t, "data/game.json", cfg.Catalog.Path)
	assert.False(t, cfg.Catalog.PowerRecipes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
	// unset keys keep their defaults
	assert.Equal(t, 50, cfg.Analyze.TopN)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	t.Setenv("PLANNER_LOG_LEVEL", "error")
	t.Setenv("PLANNER_DB_PATH", "/env/planner.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "/env/planner.db", cfg.DB.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate_Empty(t *testing.T) {
	cfg := &Config{}
	assert.Empty(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"log level", Config{Log: LogConfig{Level: "verbose"}}, "log level"},
		{"log format", Config{Log: LogConfig{Format: "xml"}}, "log format"},
		{"sample rate high", Config{Tracing: TracingConfig{SampleRate: 1.5}}, "sample_rate"},
		{"sample rate negative", Config{Tracing: TracingConfig{SampleRate: -0.1}}, "sample_rate"},
		{"busy threshold", Config{Analyze: AnalyzeConfig{BusyThreshold: -1}}, "busy_threshold"},
		{"top n", Config{Analyze: AnalyzeConfig{TopN: -3}}, "top_n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.cfg.Validate()
			require.Len(t, warnings, 1)
			assert.Contains(t, warnings[0], tt.want)
		})
	}
}

func TestValidate_CaseInsensitiveLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "DEBUG", Format: "JSON"}}
	assert.Empty(t, cfg.Validate())
}
