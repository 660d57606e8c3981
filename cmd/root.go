package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"factory/planner/internal/config"
	"factory/planner/internal/db"
	"factory/planner/internal/observability"
)

var (
	dbPath      string
	configPath  string
	logLevel    string
	catalogPath string

	cfg    = &config.Config{}
	logger = slog.Default()
	tracer *observability.TracerProvider
)

var rootCmd = &cobra.Command{
	Use:           "planner",
	Short:         "Factory production-chain planner",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		logger = observability.NewLogger(cfg.Log, os.Stderr)

		tp, err := observability.InitTracing(cmd.Context(), cfg.Tracing)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		tracer = tp
		return nil
	},
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if tracer != nil {
		if serr := tracer.Shutdown(context.Background()); serr != nil {
			logger.Warn("tracer shutdown", "err", serr)
		}
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .planner.db database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Path to game data JSON")
}

// DiscoverDB finds the database path using priority:
// env > flag > config > walk-up > XDG fallback
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("PLANNER_DB"); envPath != "" {
		return envPath, nil
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
			return "", fmt.Errorf("directory for --db path does not exist: %s", dbPath)
		}
		return dbPath, nil
	}

	// 3. Config file
	if cfg.DB.Path != "" {
		return cfg.DB.Path, nil
	}

	// 4. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".planner.db")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 5. XDG fallback, created on first use
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no .planner.db found and no home directory (set PLANNER_DB or use --db): %w", err)
	}
	xdgDir := filepath.Join(home, ".local", "share", "factory-planner")
	if err := os.MkdirAll(xdgDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", xdgDir, err)
	}
	return filepath.Join(xdgDir, "planner.db"), nil
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening database", "path", path)
	return db.OpenDB(path)
}
