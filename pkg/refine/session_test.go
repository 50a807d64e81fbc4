package refine

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
	"github.com/archlens/archlens/pkg/score"
)

// stubEngine returns the input layout untouched, or fails on demand.
type stubEngine struct {
	calls int
	fail  bool
}

func (e *stubEngine) ComputeLayout(_ context.Context, l *layout.Layout, _ layout.LayoutStrategy, _ EngineParams) (*layout.Layout, error) {
	e.calls++
	if e.fail {
		return nil, fmt.Errorf("solver diverged")
	}
	return l.Clone(), nil
}

// stubScorer returns a scripted sequence of combined scores.
type stubScorer struct {
	scores []float64
	call   int
}

func (s *stubScorer) ScoreLayout(_ *layout.Layout, _ layout.LayoutStrategy, _ layout.DiagramCategory) (*score.CombinedQualityScore, error) {
	v := s.scores[s.call%len(s.scores)]
	s.call++
	return &score.CombinedQualityScore{
		ReadabilityScore: v,
		SimilarityScore:  1,
		CombinedScore:    v,
		Tier:             metrics.Classify(v),
	}, nil
}

func testLayout() *layout.Layout {
	return &layout.Layout{
		Nodes: []layout.Node{
			{ID: "a", X: 0, Y: 0, Width: 10, Height: 10},
			{ID: "b", X: 50, Y: 0, Width: 10, Height: 10},
		},
		Edges: []layout.Edge{{Source: "a", Target: "b"}},
	}
}

func newTestSession(t *testing.T, engine Engine, scorer Scorer) *Session {
	t.Helper()
	s, err := NewSession(engine, scorer, testLayout(), layout.StrategyHierarchical, layout.CategoryApplication)
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	return s
}

func TestImprovementDelta(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &stubEngine{}, &stubScorer{scores: []float64{0.6, 0.75}})

	it1, err := s.Start(ctx, EngineParams{NodeSpacing: 40})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if it1.Number != 1 || it1.Improved || it1.ImprovementDelta != 0 {
		t.Errorf("iteration 1 = %+v, want number 1 with no improvement baseline", it1)
	}

	it2, err := s.Refine(ctx, EngineParams{NodeSpacing: 60})
	if err != nil {
		t.Fatalf("Refine() error: %v", err)
	}
	if it2.Number != 2 {
		t.Errorf("iteration number = %d, want 2", it2.Number)
	}
	if !it2.Improved {
		t.Error("Improved = false, want true for 0.6 -> 0.75")
	}
	if math.Abs(it2.ImprovementDelta-0.15) > 1e-9 {
		t.Errorf("ImprovementDelta = %v, want 0.15", it2.ImprovementDelta)
	}
}

func TestRevertKeepsHistoryAndNumbering(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &stubEngine{}, &stubScorer{scores: []float64{0.6, 0.75, 0.7}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Refine(ctx, EngineParams{NodeSpacing: 60}); err != nil {
		t.Fatal(err)
	}

	if err := s.Revert(1); err != nil {
		t.Fatalf("Revert(1) error: %v", err)
	}
	st := s.State()
	if st.Current != 1 {
		t.Errorf("current = %d after revert, want 1", st.Current)
	}
	if len(st.Iterations) != 2 {
		t.Fatalf("revert deleted iterations: have %d, want 2", len(st.Iterations))
	}

	it3, err := s.Refine(ctx, EngineParams{NodeSpacing: 30})
	if err != nil {
		t.Fatal(err)
	}
	if it3.Number != 3 {
		t.Errorf("iteration after revert numbered %d, want 3", it3.Number)
	}
	// Delta is measured against the reverted-to iteration (0.6), not the
	// abandoned iteration 2.
	if math.Abs(it3.ImprovementDelta-0.1) > 1e-9 {
		t.Errorf("ImprovementDelta = %v, want 0.1 relative to iteration 1", it3.ImprovementDelta)
	}

	st = s.State()
	if len(st.Iterations) != 3 {
		t.Fatalf("have %d iterations, want 3", len(st.Iterations))
	}
	if st.Iterations[1].Number != 2 {
		t.Error("abandoned iteration 2 missing from history")
	}
}

func TestRejectMovesBack(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &stubEngine{}, &stubScorer{scores: []float64{0.6, 0.5}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Refine(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reject(); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}

	st := s.State()
	if st.Current != 1 {
		t.Errorf("current = %d after reject, want 1", st.Current)
	}
	if st.Status != StatusAwaitingFeedback {
		t.Errorf("status = %s, want awaiting_feedback", st.Status)
	}
	if len(st.Iterations) != 2 {
		t.Error("reject removed the rejected iteration from history")
	}
}

func TestApproveCompletes(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &stubEngine{}, &stubScorer{scores: []float64{0.8}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Approve(); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if st := s.State(); st.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", st.Status)
	}

	if _, err := s.Refine(ctx, EngineParams{}); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("Refine() after approve code = %v, want INVALID_STATE", errors.GetCode(err))
	}
}

func TestStopIsCooperative(t *testing.T) {
	ctx := context.Background()
	engine := &stubEngine{}
	s := newTestSession(t, engine, &stubScorer{scores: []float64{0.8}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	s.Stop()

	if st := s.State(); st.Status != StatusStopped {
		t.Errorf("status = %s, want stopped", st.Status)
	}
	if _, err := s.Continue(ctx); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("Continue() after stop code = %v, want INVALID_STATE", errors.GetCode(err))
	}
	if engine.calls != 1 {
		t.Errorf("engine called %d times after stop, want 1", engine.calls)
	}
}

func TestEngineFailureStopsIteration(t *testing.T) {
	ctx := context.Background()
	engine := &stubEngine{}
	s := newTestSession(t, engine, &stubScorer{scores: []float64{0.6}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}

	engine.fail = true
	_, err := s.Refine(ctx, EngineParams{})
	if !errors.Is(err, errors.ErrCodeEngine) {
		t.Fatalf("Refine() with failing engine code = %v, want ENGINE", errors.GetCode(err))
	}

	st := s.State()
	if st.Status != StatusStopped {
		t.Errorf("status = %s, want stopped", st.Status)
	}
	if len(st.Iterations) != 2 {
		t.Fatalf("failed pass not recorded: have %d iterations, want 2", len(st.Iterations))
	}
	failed := st.Iterations[1]
	if failed.Status != StatusStopped || failed.Error == "" {
		t.Errorf("failed iteration = %+v, want stopped with error message", failed)
	}
	// The earlier, successful history survives.
	if st.Iterations[0].Score == nil || st.Iterations[0].Score.CombinedScore != 0.6 {
		t.Error("successful iteration 1 lost after engine failure")
	}
}

func TestFeedbackAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &stubEngine{}, &stubScorer{scores: []float64{0.7}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	entries := []FeedbackEntry{
		{Aspect: AspectSpacing, Direction: DirectionIncrease, Intensity: IntensityModerate, Note: "too cramped"},
		{Aspect: AspectOverall, Direction: DirectionAcceptable, Intensity: IntensitySlight},
	}
	for _, e := range entries {
		if err := s.SubmitFeedback(e); err != nil {
			t.Fatalf("SubmitFeedback() error: %v", err)
		}
	}

	st := s.State()
	if len(st.Feedback) != 2 {
		t.Fatalf("have %d feedback entries, want 2", len(st.Feedback))
	}
	if st.Feedback[0].Aspect != AspectSpacing || st.Feedback[1].Aspect != AspectOverall {
		t.Error("feedback order not preserved")
	}
	for i, e := range st.Feedback {
		if e.CreatedAt.IsZero() {
			t.Errorf("feedback %d missing timestamp", i)
		}
	}
}

func TestStartTwiceRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, &stubEngine{}, &stubScorer{scores: []float64{0.7}})

	if _, err := s.Start(ctx, EngineParams{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Start(ctx, EngineParams{}); !errors.Is(err, errors.ErrCodeInvalidState) {
		t.Errorf("second Start() code = %v, want INVALID_STATE", errors.GetCode(err))
	}
}
