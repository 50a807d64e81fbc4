package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/internal/api"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the archlens HTTP API server.

The server exposes layout evaluation, image comparison, snapshot history,
and regression checks as JSON endpoints under /api/v1. It shuts down
gracefully on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	scorer, err := c.newScorer()
	if err != nil {
		return err
	}
	hist, err := c.newHistory(ctx)
	if err != nil {
		return err
	}
	defer hist.Close()

	c.Logger.Info("starting server", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
	server := api.NewServer(cfg, scorer, hist)
	return server.ListenAndServe(ctx)
}
