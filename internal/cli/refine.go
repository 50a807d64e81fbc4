package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spf13/cobra"

	"github.com/archlens/archlens/pkg/engine"
	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/refine"
)

// refineCommand creates the refine command for interactive layout tuning.
func (c *CLI) refineCommand() *cobra.Command {
	var (
		category string
		strategy string
		output   string
		spacing  float64
	)

	cmd := &cobra.Command{
		Use:   "refine [layout.json]",
		Short: "Interactively refine a layout",
		Long: `Interactively refine a diagram layout.

The refine command starts a refinement session: each pass asks the layout
engine for new node positions, rescores the result, and waits for your
decision. Accept the result, reject it, adjust spacing and try again, or
revert to any earlier pass. The full pass history is kept, so nothing is
lost by experimenting.

Key bindings:
  +/-    widen or tighten node spacing, then re-run
  c      run another pass with the same parameters
  a      approve the current pass and write the layout
  x      reject the current pass, go back one
  1-9    revert to pass n
  q      stop without writing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRefine(cmd.Context(), args[0], category, strategy, output, spacing)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "application", "diagram category")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "hierarchical", "layout strategy")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.refined.json)")
	cmd.Flags().Float64Var(&spacing, "spacing", 36, "initial node spacing in points")

	return cmd
}

func (c *CLI) runRefine(ctx context.Context, input, category, strategy, output string, spacing float64) error {
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

	scorer, err := c.newScorer()
	if err != nil {
		return err
	}
	session, err := refine.NewSession(engine.New(), scorer, l, strat, cat)
	if err != nil {
		return err
	}

	if output == "" {
		output = input + ".refined.json"
	}

	model := newRefineModel(ctx, session, refine.EngineParams{NodeSpacing: spacing})
	prog := tea.NewProgram(model, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("refinement session: %w", err)
	}

	m := final.(refineModel)
	if m.err != nil {
		return m.err
	}
	if !m.approved {
		printInfo("Refinement stopped, nothing written")
		return nil
	}

	st := session.State()
	var result *layout.Layout
	for i := range st.Iterations {
		if st.Iterations[i].Number == st.Current {
			result = st.Iterations[i].Layout()
		}
	}
	if result == nil {
		return fmt.Errorf("no layout to write")
	}
	if err := layout.WriteFile(result, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Refinement complete after %d passes", len(st.Iterations))
	printFile(output)
	printNextStep("Evaluate", "archlens evaluate "+output)
	return nil
}

// =============================================================================
// RefineModel - Interactive refinement loop
// =============================================================================

// iterationMsg carries the result of one engine pass back to the UI.
type iterationMsg struct {
	it  *refine.Iteration
	err error
}

// refineModel is the bubbletea model for the refinement session.
type refineModel struct {
	ctx     context.Context
	session *refine.Session
	params  refine.EngineParams

	working  bool
	approved bool
	status   string
	err      error
}

func newRefineModel(ctx context.Context, session *refine.Session, params refine.EngineParams) refineModel {
	return refineModel{ctx: ctx, session: session, params: params, working: true}
}

func (m refineModel) Init() tea.Cmd {
	return func() tea.Msg {
		it, err := m.session.Start(m.ctx, m.params)
		return iterationMsg{it: it, err: err}
	}
}

func (m refineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case iterationMsg:
		m.working = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		if m.working {
			if msg.String() == "ctrl+c" {
				m.session.Stop()
				return m, tea.Quit
			}
			return m, nil
		}

		switch key := msg.String(); key {
		case "q", "ctrl+c", "esc":
			m.session.Stop()
			return m, tea.Quit

		case "a":
			if err := m.session.Approve(); err != nil {
				m.err = err
				return m, tea.Quit
			}
			m.approved = true
			return m, tea.Quit

		case "x":
			if err := m.session.Reject(); err == nil {
				_ = m.session.SubmitFeedback(refine.FeedbackEntry{
					Aspect:    refine.AspectOverall,
					Direction: refine.DirectionDecrease,
					Intensity: refine.IntensityModerate,
				})
			}
			return m, nil

		case "c":
			m.working = true
			return m, m.runPass(func(ctx context.Context) (*refine.Iteration, error) {
				return m.session.Continue(ctx)
			})

		case "+", "=":
			m.params.NodeSpacing += 12
			m.noteSpacing(refine.DirectionIncrease)
			return m.refineWithParams()

		case "-":
			if m.params.NodeSpacing > 12 {
				m.params.NodeSpacing -= 12
			}
			m.noteSpacing(refine.DirectionDecrease)
			return m.refineWithParams()

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			n := int(key[0] - '0')
			if err := m.session.Revert(n); err != nil {
				m.status = fmt.Sprintf("cannot revert to pass %d: %s", n, errors.UserMessage(err))
			} else {
				m.status = ""
			}
			return m, nil
		}
	}
	return m, nil
}

func (m refineModel) refineWithParams() (tea.Model, tea.Cmd) {
	m.working = true
	params := m.params
	return m, m.runPass(func(ctx context.Context) (*refine.Iteration, error) {
		return m.session.Refine(ctx, params)
	})
}

func (m refineModel) runPass(fn func(context.Context) (*refine.Iteration, error)) tea.Cmd {
	return func() tea.Msg {
		it, err := fn(m.ctx)
		return iterationMsg{it: it, err: err}
	}
}

func (m refineModel) noteSpacing(dir refine.FeedbackDirection) {
	_ = m.session.SubmitFeedback(refine.FeedbackEntry{
		Aspect:    refine.AspectSpacing,
		Direction: dir,
		Intensity: refine.IntensitySlight,
	})
}

func (m refineModel) View() string {
	st := m.session.State()

	s := StyleTitle.Render("Layout refinement") + "\n\n"
	for _, it := range st.Iterations {
		marker := "  "
		if it.Number == st.Current {
			marker = StyleHighlight.Render("> ")
		}
		line := fmt.Sprintf("%spass %d", marker, it.Number)
		if it.Score != nil {
			line += "  " + formatScore(it.Score.CombinedScore) + " " + renderTier(it.Score.Tier)
			if it.Number > 1 {
				line += "  " + StyleDim.Render(fmt.Sprintf("%+.4f", it.ImprovementDelta))
			}
		} else if it.Error != "" {
			line += "  " + StyleError.Render("failed: "+it.Error)
		}
		s += line + "\n"
	}

	s += "\n"
	if m.status != "" {
		s += StyleWarning.Render(m.status) + "\n"
	}
	if m.working {
		s += StyleDim.Render("computing layout...") + "\n"
	} else {
		s += StyleDim.Render(fmt.Sprintf("spacing %.0fpt · [+/-] adjust · [c]ontinue · [a]pprove · [x] reject · [1-9] revert · [q]uit", m.params.NodeSpacing)) + "\n"
	}
	return s
}
