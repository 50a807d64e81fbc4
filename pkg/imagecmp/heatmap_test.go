package imagecmp

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
)

// blot paints white except for a black 16x16 square at (32, 32).
func blot(x, y int) color.Color {
	if x >= 32 && x < 48 && y >= 32 && y < 48 {
		return color.Black
	}
	return color.White
}

func TestHeatmapIdenticalImages(t *testing.T) {
	img := render(t, 64, 64, checkerboard)

	h, err := ComputeHeatmap(img, img, DefaultHeatmapOptions())
	if err != nil {
		t.Fatalf("ComputeHeatmap: %v", err)
	}

	if h.Summary.MeanDiff != 0 || h.Summary.MaxDiff != 0 {
		t.Errorf("identical images: summary = %+v, want zeros", h.Summary)
	}
	if len(h.Hotspots) != 0 {
		t.Errorf("identical images produced %d hotspots", len(h.Hotspots))
	}
}

func TestHeatmapLocalizesDifference(t *testing.T) {
	ref := render(t, 64, 64, white)
	gen := render(t, 64, 64, blot)

	h, err := ComputeHeatmap(ref, gen, DefaultHeatmapOptions())
	if err != nil {
		t.Fatalf("ComputeHeatmap: %v", err)
	}

	if len(h.Hotspots) != 1 {
		t.Fatalf("got %d hotspots, want 1: %+v", len(h.Hotspots), h.Hotspots)
	}

	hs := h.Hotspots[0]
	// The black square spans pixels 32..47, which is blocks 4 and 5 in each
	// axis with the default block size of 8.
	if hs.X != 32 || hs.Y != 32 || hs.Width != 16 || hs.Height != 16 {
		t.Errorf("hotspot = %+v, want 16x16 region at (32, 32)", hs)
	}
	if hs.Intensity < 0.9 {
		t.Errorf("hotspot intensity = %v, want near 1 for black-on-white", hs.Intensity)
	}

	if h.Summary.MaxDiff < 0.99 {
		t.Errorf("MaxDiff = %v, want ~1", h.Summary.MaxDiff)
	}
	// 256 of 4096 pixels differ.
	wantPct := 100 * 256.0 / 4096.0
	if diff := h.Summary.PercentSignificant - wantPct; diff > 0.01 || diff < -0.01 {
		t.Errorf("PercentSignificant = %v, want %v", h.Summary.PercentSignificant, wantPct)
	}
}

func TestHeatmapGridDimensions(t *testing.T) {
	ref := render(t, 60, 30, white) // not a multiple of the block size
	gen := render(t, 60, 30, white)

	h, err := ComputeHeatmap(ref, gen, DefaultHeatmapOptions())
	if err != nil {
		t.Fatalf("ComputeHeatmap: %v", err)
	}
	if h.Cols != 8 || h.Rows != 4 {
		t.Errorf("grid = %dx%d, want 8x4 for 60x30 pixels", h.Cols, h.Rows)
	}
	if len(h.Intensities) != h.Rows || len(h.Intensities[0]) != h.Cols {
		t.Error("intensity matrix does not match declared grid")
	}
}

func TestQuickSummaryMatchesHeatmapSummary(t *testing.T) {
	ref := render(t, 64, 64, white)
	gen := render(t, 64, 64, blot)
	opts := DefaultHeatmapOptions()

	s, err := QuickSummary(ref, gen, opts)
	if err != nil {
		t.Fatalf("QuickSummary: %v", err)
	}
	h, err := ComputeHeatmap(ref, gen, opts)
	if err != nil {
		t.Fatalf("ComputeHeatmap: %v", err)
	}

	if *s != h.Summary {
		t.Errorf("QuickSummary %+v != heatmap summary %+v", *s, h.Summary)
	}
}

func TestRenderPNG(t *testing.T) {
	ref := render(t, 64, 64, white)
	gen := render(t, 64, 64, blot)

	h, err := ComputeHeatmap(ref, gen, DefaultHeatmapOptions())
	if err != nil {
		t.Fatalf("ComputeHeatmap: %v", err)
	}

	data, err := RenderPNG(h, nil)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("rendered heatmap is not valid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("rendered size = %dx%d, want 64x64", b.Dx(), b.Dy())
	}
}
