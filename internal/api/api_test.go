package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/history"
	"github.com/archlens/archlens/pkg/layout"
	"github.com/archlens/archlens/pkg/metrics"
	"github.com/archlens/archlens/pkg/score"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	hist := history.NewService(history.NewMemoryStore(), cfg.Regression)
	return NewServer(cfg, score.NewScorer(), hist)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func pathLayout() *layout.Layout {
	return &layout.Layout{
		Nodes: []layout.Node{
			{ID: "a", X: 0, Y: 0, Width: 40, Height: 20},
			{ID: "b", X: 100, Y: 0, Width: 40, Height: 20},
			{ID: "c", X: 200, Y: 0, Width: 40, Height: 20},
		},
		Edges: []layout.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}
}

func TestHealthz(t *testing.T) {
	router := newTestServer(t).Router()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestQualityEndpoint(t *testing.T) {
	router := newTestServer(t).Router()

	rec := postJSON(t, router, "/api/v1/quality", map[string]any{
		"category": "application",
		"strategy": "hierarchical",
		"layout":   pathLayout(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var report metrics.LayoutQualityReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.NodeCount != 3 || report.EdgeCount != 2 {
		t.Errorf("report counts = %d/%d, want 3/2", report.NodeCount, report.EdgeCount)
	}
	if report.OverallScore <= 0 || report.OverallScore > 1 {
		t.Errorf("overall score = %v, want (0,1]", report.OverallScore)
	}
}

func TestQualityRejectsBadInput(t *testing.T) {
	router := newTestServer(t).Router()

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing layout", map[string]any{"category": "application", "strategy": "hierarchical"}, http.StatusBadRequest},
		{"unknown category", map[string]any{"category": "mystery", "strategy": "hierarchical", "layout": pathLayout()}, http.StatusBadRequest},
		{"unknown strategy", map[string]any{"category": "application", "strategy": "spiral", "layout": pathLayout()}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/v1/quality", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body not in envelope: %v", err)
			}
			if resp.Error.Code == "" {
				t.Error("error envelope missing code")
			}
		})
	}
}

func TestScoreEndpointWithoutImages(t *testing.T) {
	router := newTestServer(t).Router()

	rec := postJSON(t, router, "/api/v1/score", map[string]any{
		"category": "application",
		"strategy": "hierarchical",
		"layout":   pathLayout(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result score.CombinedQualityScore
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.CombinedScore != result.ReadabilityScore {
		t.Errorf("combined = %v, readability = %v; want equal without images",
			result.CombinedScore, result.ReadabilityScore)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	router := newTestServer(t).Router()

	save := postJSON(t, router, "/api/v1/snapshots/", map[string]any{
		"category":        "application",
		"strategy":        "hierarchical",
		"model_id":        "orders",
		"label":           "first pass",
		"set_as_baseline": true,
		"layout":          pathLayout(),
	})
	if save.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body %s", save.Code, save.Body)
	}
	var saved struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(save.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("save returned no snapshot id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/?model_id=orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body)
	}
	var listed struct {
		Snapshots []history.Snapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Snapshots) != 1 || !listed.Snapshots[0].ActiveBaseline {
		t.Errorf("list = %+v, want one baseline snapshot", listed.Snapshots)
	}

	reg := postJSON(t, router, "/api/v1/regression", map[string]any{
		"category": "application",
		"strategy": "hierarchical",
		"model_id": "orders",
		"layout":   pathLayout(),
	})
	if reg.Code != http.StatusOK {
		t.Fatalf("regression status = %d, body %s", reg.Code, reg.Body)
	}
	var regReport history.RegressionReport
	if err := json.Unmarshal(reg.Body.Bytes(), &regReport); err != nil {
		t.Fatal(err)
	}
	if !regReport.HasBaseline || regReport.Severity != history.SeverityNone {
		t.Errorf("regression = %+v, want baseline with no regression", regReport)
	}
}

func TestSetBaselineUnknownSnapshot(t *testing.T) {
	router := newTestServer(t).Router()

	rec := postJSON(t, router, "/api/v1/snapshots/baseline", map[string]any{
		"category":    "application",
		"strategy":    "hierarchical",
		"model_id":    "orders",
		"snapshot_id": "missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", rec.Code, rec.Body)
	}
}

func TestCheckEndpoint(t *testing.T) {
	router := newTestServer(t).Router()

	entry := map[string]any{
		"category": "application",
		"strategy": "hierarchical",
		"model_id": "orders",
		"layout":   pathLayout(),
	}
	rec := postJSON(t, router, "/api/v1/check", map[string]any{
		"strict":  false,
		"entries": []any{entry},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var report history.CheckReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Summary.Total != 1 || !report.Passed() {
		t.Errorf("summary = %+v, want one passing entry without baselines", report.Summary)
	}
}
