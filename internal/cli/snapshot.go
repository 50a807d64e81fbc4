package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
)

// snapshotCommand creates the snapshot command group for quality history.
func (c *CLI) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage quality snapshots and baselines",
		Long: `Manage quality snapshots and baselines.

Snapshots record the quality report of a layout at a point in time, keyed
by diagram category, layout strategy, and model. One snapshot per key can
be designated as the baseline that 'regress' grades against.`,
	}

	cmd.AddCommand(c.snapshotSaveCommand())
	cmd.AddCommand(c.snapshotListCommand())
	cmd.AddCommand(c.snapshotBaselineCommand())
	return cmd
}

func (c *CLI) snapshotSaveCommand() *cobra.Command {
	var (
		category string
		strategy string
		modelID  string
		label    string
		baseline bool
	)

	cmd := &cobra.Command{
		Use:   "save [layout.json]",
		Short: "Evaluate a layout and store the result as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSnapshotSave(cmd.Context(), args[0], category, strategy, modelID, label, baseline)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "application", "diagram category")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "hierarchical", "layout strategy")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "model identifier (required)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "human-readable label")
	cmd.Flags().BoolVar(&baseline, "baseline", false, "designate this snapshot as the baseline")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func (c *CLI) runSnapshotSave(ctx context.Context, input, category, strategy, modelID, label string, baseline bool) error {
	cat, err := layout.ParseCategory(category)
	if err != nil {
		return err
	}
	strat, err := layout.ParseStrategy(strategy)
	if err != nil {
		return err
	}
	l, err := layout.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}

	report, err := metrics.Calculate(l, strat, cat)
	if err != nil {
		return fmt.Errorf("evaluate layout: %w", err)
	}

	svc, err := c.newHistory(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	id, err := svc.SaveSnapshot(ctx, report, history.SaveOptions{
		ModelID:       modelID,
		Label:         label,
		SetAsBaseline: baseline,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	printSuccess("Snapshot saved")
	printKeyValue("id", id)
	printKeyValue("score", formatScore(report.OverallScore)+" "+renderTier(report.Tier()))
	if baseline {
		printKeyValue("baseline", "yes")
	}
	return nil
}

func (c *CLI) snapshotListCommand() *cobra.Command {
	var (
		category string
		strategy string
		modelID  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSnapshotList(cmd.Context(), category, strategy, modelID)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "filter by diagram category")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "filter by layout strategy")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "filter by model identifier")

	return cmd
}

func (c *CLI) runSnapshotList(ctx context.Context, category, strategy, modelID string) error {
	svc, err := c.newHistory(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	snaps, err := svc.GetSnapshots(ctx, history.Filter{
		Category: layout.DiagramCategory(category),
		Strategy: layout.LayoutStrategy(strategy),
		ModelID:  modelID,
	})
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		printInfo("No snapshots found")
		return nil
	}

	for _, s := range snaps {
		marker := " "
		if s.ActiveBaseline {
			marker = StyleHighlight.Render("*")
		}
		line := fmt.Sprintf("%s %s  %s  %s  %s",
			marker,
			StyleDim.Render(s.CreatedAt.Format("2006-01-02 15:04")),
			StyleValue.Render(s.ID[:8]),
			formatScore(s.Score)+" "+renderTier(s.Tier),
			StyleDim.Render(s.Key.String()))
		if s.Label != "" {
			line += "  " + StyleDim.Render(s.Label)
		}
		fmt.Println(line)
	}
	printNewline()
	printInfo("%d snapshots, %s marks the active baseline", len(snaps), StyleHighlight.Render("*"))
	return nil
}

func (c *CLI) snapshotBaselineCommand() *cobra.Command {
	var (
		category string
		strategy string
		modelID  string
	)

	cmd := &cobra.Command{
		Use:   "baseline [snapshot-id]",
		Short: "Designate an existing snapshot as the baseline for its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSnapshotBaseline(cmd.Context(), args[0], category, strategy, modelID)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "application", "diagram category")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "hierarchical", "layout strategy")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "model identifier (required)")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func (c *CLI) runSnapshotBaseline(ctx context.Context, id, category, strategy, modelID string) error {
	cat, err := layout.ParseCategory(category)
	if err != nil {
		return err
	}
	strat, err := layout.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	svc, err := c.newHistory(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	key := history.Key{Category: cat, Strategy: strat, ModelID: modelID}
	if err := svc.SetBaseline(ctx, key, id); err != nil {
		return fmt.Errorf("set baseline: %w", err)
	}
	printSuccess("Baseline set for %s", key)
	return nil
}
