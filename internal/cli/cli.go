// Package cli implements the archlens command-line interface.
//
// This package provides commands for evaluating diagram layout quality,
// comparing rendered diagrams against references, tracking quality history
// with baselines, gating CI runs on regressions, and interactively refining
// layouts. The CLI is built using cobra and supports verbose logging via
// the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - evaluate: Compute readability metrics for a layout file
//   - compare: Visual similarity between a reference and a generated render
//   - snapshot: Save, list, and baseline quality snapshots
//   - regress: Grade a layout against its baseline, CI-friendly
//   - refine: Interactive layout refinement session
//   - serve: Run the HTTP API server
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/archlens/archlens/pkg/buildinfo"
	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/score"
)

// appName is the application name used for directories and display.
const appName = "archlens"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	ConfigPath string

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "archlens",
		Short:        "Archlens evaluates diagram layout quality",
		Long:         `Archlens scores architecture diagram layouts on readability metrics, compares rendered diagrams against reference images, tracks quality over time with baselines, and drives interactive layout refinement.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (TOML)")

	root.AddCommand(c.evaluateCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.regressCommand())
	root.AddCommand(c.refineCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads and caches the configuration for the current run.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newScorer builds a combined scorer from the configuration.
func (c *CLI) newScorer() (*score.Scorer, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return score.NewScorer(
		score.WithBlend(cfg.BlendWeights()),
		score.WithThreshold(cfg.Blend.Threshold),
		score.WithCompareOptions(cfg.CompareOptions()),
	), nil
}

// newHistory builds the history service on the configured store backend.
// The caller owns the service and must Close it.
func (c *CLI) newHistory(ctx context.Context) (*history.Service, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	return history.NewService(store, cfg.Regression), nil
}

func newStore(ctx context.Context, cfg config.StoreConfig) (history.Store, error) {
	switch cfg.Backend {
	case "memory":
		return history.NewMemoryStore(), nil
	case "file":
		return history.NewFileStore(cfg.Path)
	case "redis":
		return history.NewRedisStore(ctx, cfg.Redis)
	case "mongo":
		return history.NewMongoStore(ctx, cfg.Mongo)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}
