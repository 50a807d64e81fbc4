package history

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
)

// Key identifies a snapshot series: one diagram model laid out by one
// strategy in one category. Each key has at most one active baseline.
type Key struct {
	Category layout.DiagramCategory `json:"category"`
	Strategy layout.LayoutStrategy  `json:"strategy"`
	ModelID  string                 `json:"model_id"`
}

// String renders the key in its store form.
func (k Key) String() string {
	return string(k.Category) + "/" + string(k.Strategy) + "/" + k.ModelID
}

const (
	snapshotPrefix = "snapshot/"
	baselinePrefix = "baseline/"
)

// Snapshot is a stored quality report tagged with a model identity and a
// human label. ActiveBaseline is derived on read from the key's baseline
// pointer, not stored on the snapshot itself, so demoting a baseline never
// rewrites snapshot data.
type Snapshot struct {
	ID             string                       `json:"id"`
	Key            Key                          `json:"key"`
	Label          string                       `json:"label,omitempty"`
	Score          float64                      `json:"score"`
	Tier           metrics.QualityTier          `json:"tier"`
	Report         *metrics.LayoutQualityReport `json:"report"`
	CreatedAt      time.Time                    `json:"created_at"`
	ActiveBaseline bool                         `json:"active_baseline"`
}

// SaveOptions controls snapshot creation.
type SaveOptions struct {
	// ModelID tags the snapshot with the identity of the diagram model.
	ModelID string

	// Label is an optional human-readable description.
	Label string

	// SetAsBaseline designates the new snapshot as the active baseline for
	// its key, demoting any previous baseline (last write wins).
	SetAsBaseline bool
}

// Filter selects snapshots. Zero-valued fields match everything.
type Filter struct {
	Category layout.DiagramCategory
	Strategy layout.LayoutStrategy
	ModelID  string
}

// Service is the metrics history and regression service. It owns all
// indexing and comparison logic on top of an abstract [Store].
//
// Writes to the same key are serialized by a per-key mutex so that
// concurrent saves can never leave the baseline pointer inconsistent;
// operations on different keys do not contend.
type Service struct {
	store Store
	cfg   RegressionConfig

	mu    sync.Mutex // guards keyLocks
	locks map[string]*sync.Mutex
}

// NewService creates a history service on the given store.
func NewService(store Store, cfg RegressionConfig) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex serializing writes for one key.
func (s *Service) keyLock(k Key) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[k.String()]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k.String()] = l
	}
	return l
}

// SaveSnapshot stores a quality report as a snapshot and returns the new
// snapshot's ID. The snapshot's score is the report's overall score.
func (s *Service) SaveSnapshot(ctx context.Context, report *metrics.LayoutQualityReport, opts SaveOptions) (string, error) {
	if report == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "nil report")
	}

	snap := Snapshot{
		ID:        uuid.NewString(),
		Key:       Key{Category: report.Category, Strategy: report.Strategy, ModelID: opts.ModelID},
		Label:     opts.Label,
		Score:     report.OverallScore,
		Tier:      report.Tier(),
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}

	lock := s.keyLock(snap.Key)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "marshal snapshot")
	}
	if err := s.store.Put(ctx, snapshotKey(snap.Key, snap.ID), data); err != nil {
		return "", errors.Wrap(errors.ErrCodeStore, err, "save snapshot %s", snap.ID)
	}

	if opts.SetAsBaseline {
		if err := s.putBaseline(ctx, snap.Key, snap.ID); err != nil {
			return "", err
		}
	}
	return snap.ID, nil
}

// GetSnapshots returns all snapshots matching the filter, ordered by
// creation time (oldest first, ties broken by ID). The ActiveBaseline flag
// is set on the snapshot currently designated as its key's baseline.
func (s *Service) GetSnapshots(ctx context.Context, f Filter) ([]Snapshot, error) {
	keys, err := s.store.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list snapshots")
	}

	baselines := make(map[string]string) // key string -> baseline snapshot id
	var snaps []Snapshot
	for _, k := range keys {
		data, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "load %s", k)
		}
		if !ok {
			continue // deleted between list and get
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "unmarshal %s", k)
		}
		if !matches(f, snap.Key) {
			continue
		}
		if _, seen := baselines[snap.Key.String()]; !seen {
			id, _, err := s.baselineID(ctx, snap.Key)
			if err != nil {
				return nil, err
			}
			baselines[snap.Key.String()] = id
		}
		snap.ActiveBaseline = snap.ID == baselines[snap.Key.String()]
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
		}
		return snaps[i].ID < snaps[j].ID
	})
	return snaps, nil
}

// GetSnapshot returns a single snapshot by key and ID.
func (s *Service) GetSnapshot(ctx context.Context, key Key, id string) (*Snapshot, error) {
	data, ok, err := s.store.Get(ctx, snapshotKey(key, id))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load snapshot %s", id)
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeSnapshotNotFound, "snapshot %s not found for %s", id, key)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "unmarshal snapshot %s", id)
	}

	bid, _, err := s.baselineID(ctx, key)
	if err != nil {
		return nil, err
	}
	snap.ActiveBaseline = snap.ID == bid
	return &snap, nil
}

// SetBaseline designates an existing snapshot as its key's active
// baseline, demoting any previous baseline for that key and only that key.
func (s *Service) SetBaseline(ctx context.Context, key Key, snapshotID string) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	_, ok, err := s.store.Get(ctx, snapshotKey(key, snapshotID))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "load snapshot %s", snapshotID)
	}
	if !ok {
		return errors.New(errors.ErrCodeSnapshotNotFound, "snapshot %s not found for %s", snapshotID, key)
	}
	return s.putBaseline(ctx, key, snapshotID)
}

// Baseline returns the active baseline snapshot for a key, or a
// BASELINE_NOT_FOUND error when none is designated.
func (s *Service) Baseline(ctx context.Context, key Key) (*Snapshot, error) {
	id, ok, err := s.baselineID(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeBaselineNotFound, "no baseline for %s", key)
	}
	return s.GetSnapshot(ctx, key, id)
}

// putBaseline writes the baseline pointer. Callers hold the key lock.
func (s *Service) putBaseline(ctx context.Context, key Key, snapshotID string) error {
	if err := s.store.Put(ctx, baselineKey(key), []byte(snapshotID)); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "set baseline for %s", key)
	}
	return nil
}

// baselineID reads the baseline pointer for a key.
func (s *Service) baselineID(ctx context.Context, key Key) (string, bool, error) {
	data, ok, err := s.store.Get(ctx, baselineKey(key))
	if err != nil {
		return "", false, errors.Wrap(errors.ErrCodeStore, err, "load baseline for %s", key)
	}
	if !ok {
		return "", false, nil
	}
	return string(data), true, nil
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

func snapshotKey(k Key, id string) string {
	return snapshotPrefix + k.String() + "/" + id
}

func baselineKey(k Key) string {
	return baselinePrefix + k.String()
}

func matches(f Filter, k Key) bool {
	if f.Category != "" && f.Category != k.Category {
		return false
	}
	if f.Strategy != "" && f.Strategy != k.Strategy {
		return false
	}
	if f.ModelID != "" && f.ModelID != k.ModelID {
		return false
	}
	return true
}
