package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
)

// evaluateCommand creates the evaluate command for scoring a layout file.
func (c *CLI) evaluateCommand() *cobra.Command {
	var (
		category string
		strategy string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate [layout.json]",
		Short: "Compute readability metrics for a layout",
		Long: `Compute readability metrics for a diagram layout.

The evaluate command reads a layout file (nodes with positions and sizes,
edges between them) and scores it on edge crossings, crossing angles,
angular resolution, and node occlusion, weighted by the diagram category.

The result is a quality report with an overall score in [0,1] and a tier
classification (excellent / good / acceptable / poor / unacceptable).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEvaluate(cmd.Context(), args[0], category, strategy, asJSON)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "application", "diagram category: motivation, business, application, technology, component")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "hierarchical", "layout strategy: hierarchical, force_directed, swimlane, matrix, radial")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")

	return cmd
}

func (c *CLI) runEvaluate(ctx context.Context, input, category, strategy string, asJSON bool) error {
	logger := loggerFromContext(ctx)

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
	logger.Debug("layout loaded", "nodes", len(l.Nodes), "edges", len(l.Edges))

	p := newProgress(logger)
	report, err := metrics.Calculate(l, strat, cat)
	if err != nil {
		return fmt.Errorf("evaluate layout: %w", err)
	}
	p.done(fmt.Sprintf("Evaluated %d nodes, %d edges", report.NodeCount, report.EdgeCount))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report)
	return nil
}

// printReport renders a quality report as labeled lines.
func printReport(r *metrics.LayoutQualityReport) {
	fmt.Println(StyleTitle.Render("Layout quality") + " " + StyleDim.Render(fmt.Sprintf("(%s, %s)", r.Category, r.Strategy)))
	printKeyValue("overall", formatScore(r.OverallScore)+" "+renderTier(r.Tier()))
	printNewline()
	printKeyValue("crossing number", formatScore(r.CrossingNumber))
	printKeyValue("crossing angle", formatScore(r.CrossingAngle))
	printKeyValue("angular resolution min", formatScore(r.AngularResolutionMin))
	printKeyValue("angular resolution dev", formatScore(r.AngularResolutionDev))
	printNewline()
	printKeyValue("crossings", fmt.Sprintf("%d", r.Crossings))
	printKeyValue("node occlusions", fmt.Sprintf("%d", r.NodeOcclusions))
	printKeyValue("aspect ratio", fmt.Sprintf("%.2f", r.AspectRatio))
	printKeyValue("density", fmt.Sprintf("%.2f", r.Density))
	printKeyValue("edge length uniformity", formatScore(r.EdgeLengthUniformity))
}
