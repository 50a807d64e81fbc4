package refine

import (
	"context"
	"sync"
	"time"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/score"
)

// Status is the refinement session state.
type Status string

const (
	// StatusRunning means a parameter change is being evaluated.
	StatusRunning Status = "running"
	// StatusAwaitingFeedback means quality is computed and the session
	// waits for a human decision.
	StatusAwaitingFeedback Status = "awaiting_feedback"
	// StatusCompleted means the current iteration was approved.
	StatusCompleted Status = "completed"
	// StatusStopped means the session was stopped explicitly or by an
	// engine failure.
	StatusStopped Status = "stopped"
)

// Feedback enums. The loop stores feedback verbatim for an external policy;
// it never branches on these values.
type (
	FeedbackAspect    string
	FeedbackDirection string
	FeedbackIntensity string
)

const (
	AspectSpacing   FeedbackAspect = "spacing"
	AspectAlignment FeedbackAspect = "alignment"
	AspectGrouping  FeedbackAspect = "grouping"
	AspectRouting   FeedbackAspect = "routing"
	AspectOverall   FeedbackAspect = "overall"

	DirectionIncrease   FeedbackDirection = "increase"
	DirectionDecrease   FeedbackDirection = "decrease"
	DirectionAcceptable FeedbackDirection = "acceptable"

	IntensitySlight      FeedbackIntensity = "slight"
	IntensityModerate    FeedbackIntensity = "moderate"
	IntensitySignificant FeedbackIntensity = "significant"
)

// FeedbackEntry is one piece of human guidance. Entries are appended and
// never mutated.
type FeedbackEntry struct {
	Aspect    FeedbackAspect    `json:"aspect"`
	Direction FeedbackDirection `json:"direction"`
	Intensity FeedbackIntensity `json:"intensity"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Iteration is one pass of the refinement loop. Iterations form an
// append-only log; numbers are monotonic and never reused, even after a
// revert.
type Iteration struct {
	Number           int                         `json:"number"`
	Params           EngineParams                `json:"params"`
	Score            *score.CombinedQualityScore `json:"score,omitempty"`
	Improved         bool                        `json:"improved"`
	ImprovementDelta float64                     `json:"improvement_delta"`
	Status           Status                      `json:"status"`
	Error            string                      `json:"error,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`

	result *layout.Layout
}

// Layout returns the layout this iteration produced, nil if the engine
// call failed.
func (it *Iteration) Layout() *layout.Layout {
	return it.result
}

// State is a point-in-time view of a session, safe to retain after the
// session moves on.
type State struct {
	Status     Status          `json:"status"`
	Current    int             `json:"current"`
	Iterations []Iteration     `json:"iterations"`
	Feedback   []FeedbackEntry `json:"feedback,omitempty"`
}

// Session is the refinement loop for one layout. All methods are safe for
// concurrent use; iteration-producing calls are serialized by the session
// mutex, so Stop takes effect between iterations, never mid-computation.
type Session struct {
	engine   Engine
	scorer   Scorer
	strategy layout.LayoutStrategy
	category layout.DiagramCategory

	mu         sync.Mutex
	status     Status
	iterations []Iteration
	current    int // index into iterations, -1 before the first pass
	feedback   []FeedbackEntry
	stopFlag   bool
	base       *layout.Layout
}

// NewSession creates a refinement session for an initial layout. The layout
// is copied so later engine passes never mutate the caller's data.
func NewSession(engine Engine, scorer Scorer, l *layout.Layout, strategy layout.LayoutStrategy, category layout.DiagramCategory) (*Session, error) {
	if engine == nil || scorer == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil engine or scorer")
	}
	if err := layout.Validate(l); err != nil {
		return nil, err
	}
	if !strategy.Valid() {
		return nil, errors.New(errors.ErrCodeUnknownStrategy, "unknown layout strategy %q", strategy)
	}
	if !category.Valid() {
		return nil, errors.New(errors.ErrCodeUnknownCategory, "unknown diagram category %q", category)
	}
	return &Session{
		engine:   engine,
		scorer:   scorer,
		strategy: strategy,
		category: category,
		status:   StatusRunning,
		current:  -1,
		base:     l.Clone(),
	}, nil
}

// Start produces iteration 1 from the initial layout.
func (s *Session) Start(ctx context.Context, params EngineParams) (*Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.iterations) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidState, "session already started")
	}
	return s.iterate(ctx, s.base, params)
}

// Refine produces a new iteration from the current layout with adjusted
// parameters. Valid from awaiting_feedback.
func (s *Session) Refine(ctx context.Context, params EngineParams) (*Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkContinuable(); err != nil {
		return nil, err
	}
	return s.iterate(ctx, s.currentLayout(), params)
}

// Continue produces a new iteration reusing the current iteration's
// parameters, letting the engine take another pass.
func (s *Session) Continue(ctx context.Context) (*Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkContinuable(); err != nil {
		return nil, err
	}
	return s.iterate(ctx, s.currentLayout(), s.iterations[s.current].Params)
}

// Approve accepts the current iteration and completes the session.
func (s *Session) Approve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAwaitingFeedback {
		return errors.New(errors.ErrCodeInvalidState, "approve requires awaiting_feedback, session is %s", s.status)
	}
	s.status = StatusCompleted
	return nil
}

// Reject discards the current iteration's result by moving the current
// pointer back to the previous iteration. The rejected iteration stays in
// history.
func (s *Session) Reject() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAwaitingFeedback {
		return errors.New(errors.ErrCodeInvalidState, "reject requires awaiting_feedback, session is %s", s.status)
	}
	if s.current == 0 {
		return errors.New(errors.ErrCodeInvalidState, "cannot reject the first iteration")
	}
	s.current--
	return nil
}

// Revert re-activates an earlier iteration as current without deleting any
// later iterations; a subsequent Refine continues the monotonic numbering.
func (s *Session) Revert(number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted || s.status == StatusStopped {
		return errors.New(errors.ErrCodeInvalidState, "session is %s", s.status)
	}
	idx := number - 1
	if idx < 0 || idx >= len(s.iterations) {
		return errors.New(errors.ErrCodeInvalidInput, "no iteration %d", number)
	}
	if s.iterations[idx].result == nil {
		return errors.New(errors.ErrCodeInvalidState, "iteration %d has no layout", number)
	}
	s.current = idx
	s.status = StatusAwaitingFeedback
	return nil
}

// Stop requests a cooperative stop. An in-flight engine call completes; the
// next iteration-producing call observes the flag and refuses.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopFlag = true
	if s.status != StatusCompleted {
		s.status = StatusStopped
	}
}

// SubmitFeedback appends a feedback entry for the external parameter
// policy to consume. The timestamp is set here if zero.
func (s *Session) SubmitFeedback(entry FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted || s.status == StatusStopped {
		return errors.New(errors.ErrCodeInvalidState, "session is %s", s.status)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.feedback = append(s.feedback, entry)
	return nil
}

// State returns a snapshot of the session: status, the current iteration
// number (0 before the first pass), and copies of the iteration and
// feedback logs.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Status:     s.status,
		Iterations: make([]Iteration, len(s.iterations)),
		Feedback:   make([]FeedbackEntry, len(s.feedback)),
	}
	copy(st.Iterations, s.iterations)
	copy(st.Feedback, s.feedback)
	if s.current >= 0 {
		st.Current = s.iterations[s.current].Number
	}
	return st
}

// checkContinuable verifies the session can produce another iteration.
// Callers hold s.mu.
func (s *Session) checkContinuable() error {
	if s.stopFlag || s.status == StatusStopped {
		return errors.New(errors.ErrCodeInvalidState, "session is stopped")
	}
	if s.status == StatusCompleted {
		return errors.New(errors.ErrCodeInvalidState, "session is completed")
	}
	if s.current < 0 {
		return errors.New(errors.ErrCodeInvalidState, "session not started")
	}
	return nil
}

// currentLayout returns the layout of the current iteration. Callers hold
// s.mu and have verified current >= 0.
func (s *Session) currentLayout() *layout.Layout {
	return s.iterations[s.current].result
}

// iterate runs one engine pass, scores the result, and appends the
// iteration. Callers hold s.mu.
func (s *Session) iterate(ctx context.Context, from *layout.Layout, params EngineParams) (*Iteration, error) {
	s.status = StatusRunning

	it := Iteration{
		Number:    len(s.iterations) + 1,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.engine.ComputeLayout(ctx, from, s.strategy, params)
	if err != nil {
		it.Status = StatusStopped
		it.Error = err.Error()
		s.iterations = append(s.iterations, it)
		s.status = StatusStopped
		return nil, errors.Wrap(errors.ErrCodeEngine, err, "layout engine failed on iteration %d", it.Number)
	}

	sc, err := s.scorer.ScoreLayout(result, s.strategy, s.category)
	if err != nil {
		it.Status = StatusStopped
		it.Error = err.Error()
		s.iterations = append(s.iterations, it)
		s.status = StatusStopped
		return nil, err
	}

	it.Score = sc
	it.result = result
	if s.current >= 0 {
		if prev := s.iterations[s.current].Score; prev != nil {
			it.ImprovementDelta = sc.CombinedScore - prev.CombinedScore
			it.Improved = it.ImprovementDelta > 0
		}
	}
	it.Status = StatusAwaitingFeedback

	s.iterations = append(s.iterations, it)
	s.current = len(s.iterations) - 1
	s.status = StatusAwaitingFeedback
	return &it, nil
}
