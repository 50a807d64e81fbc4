package api

import (
	"encoding/json"
	"net/http"

	"github.com/archlens/archlens/pkg/errors"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/imagecmp"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
)

// layoutRequest is the common request body for endpoints that evaluate a
// layout.
type layoutRequest struct {
	Category layout.DiagramCategory `json:"category"`
	Strategy layout.LayoutStrategy  `json:"strategy"`
	Layout   *layout.Layout         `json:"layout"`
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuality computes a readability quality report for a layout.
func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Layout == nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing layout"))
		return
	}

	report, err := metrics.Calculate(req.Layout, req.Strategy, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type compareRequest struct {
	Reference []byte `json:"reference"` // base64 in JSON
	Generated []byte `json:"generated"`
	Heatmap   bool   `json:"heatmap"`
}

type compareResponse struct {
	Result  *imagecmp.Result            `json:"result"`
	Heatmap *imagecmp.DifferenceHeatmap `json:"heatmap,omitempty"`
}

// handleCompare runs visual similarity between a reference and a generated
// render, optionally with a difference heatmap.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := imagecmp.Compare(req.Reference, req.Generated, s.cfg.CompareOptions())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := compareResponse{Result: result}
	if req.Heatmap {
		hm, err := imagecmp.ComputeHeatmap(req.Reference, req.Generated, imagecmp.DefaultHeatmapOptions())
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Heatmap = hm
	}
	writeJSON(w, http.StatusOK, resp)
}

type scoreRequest struct {
	layoutRequest
	Reference []byte `json:"reference,omitempty"`
	Generated []byte `json:"generated,omitempty"`
}

// handleScore computes the combined quality score, blending in visual
// similarity when both images are supplied.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Layout == nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing layout"))
		return
	}

	result, err := s.scorer.Score(req.Layout, req.Strategy, req.Category, req.Reference, req.Generated)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type saveSnapshotRequest struct {
	layoutRequest
	ModelID       string `json:"model_id"`
	Label         string `json:"label,omitempty"`
	SetAsBaseline bool   `json:"set_as_baseline,omitempty"`
}

// handleSaveSnapshot evaluates a layout and stores the result as a
// snapshot.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req saveSnapshotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Layout == nil || req.ModelID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing layout or model_id"))
		return
	}

	report, err := metrics.Calculate(req.Layout, req.Strategy, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := s.history.SaveSnapshot(r.Context(), report, history.SaveOptions{
		ModelID:       req.ModelID,
		Label:         req.Label,
		SetAsBaseline: req.SetAsBaseline,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "report": report})
}

// handleListSnapshots lists snapshots filtered by the category, strategy,
// and model_id query parameters.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := history.Filter{
		Category: layout.DiagramCategory(q.Get("category")),
		Strategy: layout.LayoutStrategy(q.Get("strategy")),
		ModelID:  q.Get("model_id"),
	}
	snaps, err := s.history.GetSnapshots(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if snaps == nil {
		snaps = []history.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

type setBaselineRequest struct {
	Category   layout.DiagramCategory `json:"category"`
	Strategy   layout.LayoutStrategy  `json:"strategy"`
	ModelID    string                 `json:"model_id"`
	SnapshotID string                 `json:"snapshot_id"`
}

// handleSetBaseline designates an existing snapshot as the baseline for
// its key.
func (s *Server) handleSetBaseline(w http.ResponseWriter, r *http.Request) {
	var req setBaselineRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	key := history.Key{Category: req.Category, Strategy: req.Strategy, ModelID: req.ModelID}
	if err := s.history.SetBaseline(r.Context(), key, req.SnapshotID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"baseline": req.SnapshotID})
}

type regressionRequest struct {
	layoutRequest
	ModelID string `json:"model_id"`
}

// handleRegression evaluates a layout and grades it against the active
// baseline for its key.
func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	var req regressionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Layout == nil || req.ModelID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing layout or model_id"))
		return
	}

	report, err := metrics.Calculate(req.Layout, req.Strategy, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	reg, err := s.history.DetectRegression(r.Context(), report, req.ModelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type checkRequest struct {
	Strict  bool `json:"strict"`
	Entries []struct {
		layoutRequest
		ModelID string `json:"model_id"`
	} `json:"entries"`
}

// handleCheck runs the CI quality gate over a batch of layouts.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	inputs := make([]history.CheckInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		if e.Layout == nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing layout for model %q", e.ModelID))
			return
		}
		report, err := metrics.Calculate(e.Layout, e.Strategy, e.Category)
		if err != nil {
			writeError(w, err)
			return
		}
		inputs = append(inputs, history.CheckInput{ModelID: e.ModelID, Report: report})
	}

	cfg := history.CheckConfig{Regression: s.cfg.Regression, Strict: req.Strict}
	result, err := s.history.RunCheck(r.Context(), cfg, inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
