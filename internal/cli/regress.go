package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
)

// regressCommand creates the regress command for CI quality gating.
func (c *CLI) regressCommand() *cobra.Command {
	var (
		category string
		strategy string
		modelID  string
		strict   bool
		jsonOut  string
	)

	cmd := &cobra.Command{
		Use:   "regress [layout.json]",
		Short: "Grade a layout against its quality baseline",
		Long: `Grade a layout against the active quality baseline for its key.

The regress command evaluates the layout, compares its overall score with
the baseline snapshot, and classifies the change as none, minor, moderate,
or severe. Moderate and severe regressions make the command exit non-zero;
with --strict, minor regressions and missing baselines also fail.

With --json, a machine-readable check report is written for CI tooling.
The report's JSON shape is stable across versions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRegress(cmd.Context(), args[0], category, strategy, modelID, strict, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "application", "diagram category")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "hierarchical", "layout strategy")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "model identifier (required)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on minor regressions and missing baselines")
	cmd.Flags().StringVar(&jsonOut, "json", "", "write a CI check report to this path ('-' for stdout)")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func (c *CLI) runRegress(ctx context.Context, input, category, strategy, modelID string, strict bool, jsonOut string) error {
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

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	checkCfg := history.CheckConfig{Regression: cfg.Regression, Strict: strict}
	check, err := svc.RunCheck(ctx, checkCfg, []history.CheckInput{{ModelID: modelID, Report: report}})
	if err != nil {
		return fmt.Errorf("run regression check: %w", err)
	}

	if jsonOut != "" {
		if err := writeCheckReport(check, jsonOut); err != nil {
			return err
		}
	}

	res := check.Results[0]
	printRegression(res)

	if !check.Passed() {
		return errors.New(errors.ErrCodeInvalidInput, "quality gate failed: %s", res.Reason)
	}
	return nil
}

func writeCheckReport(check *history.CheckReport, path string) error {
	if path == "-" {
		return check.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	if err := check.WriteJSON(f); err != nil {
		return err
	}
	printFile(path)
	return nil
}

func printRegression(res history.CheckResult) {
	reg := res.Regression
	fmt.Println(StyleTitle.Render("Regression check") + " " + StyleDim.Render(reg.Key.String()))
	printKeyValue("score", formatScore(res.Score)+" "+StyleDim.Render(res.Tier))

	if !reg.HasBaseline {
		printWarning("No baseline designated for this key")
		return
	}

	printKeyValue("baseline", formatScore(reg.BaselineScore))
	printKeyValue("change", fmt.Sprintf("%+.2f%%", reg.PercentChange))
	printKeyValue("severity", renderSeverity(reg.Severity))
	for _, d := range reg.Metrics {
		printKeyValue(d.Metric, fmt.Sprintf("%s %s %s",
			formatScore(d.Baseline), StyleDim.Render(iconArrow), formatScore(d.Current)))
	}

	if res.Passed {
		printSuccess("Quality gate passed")
	} else {
		printError("Quality gate failed: %s", res.Reason)
	}
}
