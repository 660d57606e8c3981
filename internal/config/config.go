package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Analyze AnalyzeConfig `mapstructure:"analyze"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// CatalogConfig points at the game data JSON. PowerRecipes adds the
// reactor recipes the data set lacks.
type CatalogConfig struct {
	Path         string `mapstructure:"path"`
	PowerRecipes bool   `mapstructure:"power_recipes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures OTLP export. An empty endpoint disables it.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type AnalyzeConfig struct {
	BusyThreshold int `mapstructure:"busy_threshold"`
	TopN          int `mapstructure:"top_n"`
}

var defaults = map[string]any{
	"db.path":                "",
	"catalog.path":           "",
	"catalog.power_recipes":  true,
	"log.level":              "info",
	"log.format":             "text",
	"tracing.endpoint":       "",
	"tracing.service_name":   "factory-planner",
	"tracing.environment":    "development",
	"tracing.sample_rate":    1.0,
	"analyze.busy_threshold": 4,
	"analyze.top_n":          50,
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Log.Level != "" && !oneOf(c.Log.Level, logLevels) {
		warnings = append(warnings, fmt.Sprintf("log level '%s' is not one of %s; using info", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if c.Log.Format != "" && !oneOf(c.Log.Format, logFormats) {
		warnings = append(warnings, fmt.Sprintf("log format '%s' is not one of %s; using text", c.Log.Format, strings.Join(logFormats, ", ")))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	if c.Analyze.BusyThreshold < 0 {
		warnings = append(warnings, fmt.Sprintf("analyze busy_threshold %d is negative", c.Analyze.BusyThreshold))
	}
	if c.Analyze.TopN < 0 {
		warnings = append(warnings, fmt.Sprintf("analyze top_n %d is negative", c.Analyze.TopN))
	}

	return warnings
}

// Load reads configuration from file and environment. An empty path skips
// the file and uses defaults plus PLANNER_* variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
