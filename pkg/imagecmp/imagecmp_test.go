package imagecmp

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/archlens/archlens/pkg/errors"
)

// render produces PNG bytes for a w x h image painted by fill(x, y).
func render(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func white(x, y int) color.Color { return color.White }

// checkerboard alternates 8x8 black and white tiles.
func checkerboard(x, y int) color.Color {
	if (x/8+y/8)%2 == 0 {
		return color.Black
	}
	return color.White
}

// gradient fades from black to white left to right.
func gradient(x, y int) color.Color {
	v := uint8(x % 256)
	return color.Gray{Y: v}
}

func TestCompareSelfSimilarity(t *testing.T) {
	img := render(t, 64, 64, checkerboard)

	res, err := Compare(img, img, DefaultOptions())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if res.StructuralSimilarity < 0.99 {
		t.Errorf("self SSIM = %v, want >= 0.99", res.StructuralSimilarity)
	}
	if res.HashDistance != 0 {
		t.Errorf("self hash distance = %d, want 0", res.HashDistance)
	}
	if !res.Similar {
		t.Error("an image must be similar to itself")
	}
	if res.CombinedScore < 0.99 {
		t.Errorf("self combined score = %v, want ~1", res.CombinedScore)
	}
}

func TestCompareDifferentImages(t *testing.T) {
	a := render(t, 64, 64, checkerboard)
	b := render(t, 64, 64, gradient)

	res, err := Compare(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if res.StructuralSimilarity > 0.9 {
		t.Errorf("checkerboard vs gradient SSIM = %v, expected clearly below 0.9", res.StructuralSimilarity)
	}
	if res.HashDistance == 0 {
		t.Error("structurally different images should have nonzero hash distance")
	}
}

func TestCompareAntiCorrelatedImagesStayInRange(t *testing.T) {
	// A per-pixel checkerboard against its inverse is maximally
	// anti-correlated in every window; the raw structural index goes
	// deeply negative there and must be floored, never reported.
	a := render(t, 64, 64, func(x, y int) color.Color {
		if (x+y)%2 == 0 {
			return color.Black
		}
		return color.White
	})
	b := render(t, 64, 64, func(x, y int) color.Color {
		if (x+y)%2 == 0 {
			return color.White
		}
		return color.Black
	})

	res, err := Compare(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if res.StructuralSimilarity < 0 || res.StructuralSimilarity > 1 {
		t.Errorf("StructuralSimilarity = %v, must stay in [0,1]", res.StructuralSimilarity)
	}
	if res.CombinedScore < 0 || res.CombinedScore > 1 {
		t.Errorf("CombinedScore = %v, must stay in [0,1]", res.CombinedScore)
	}
	if res.StructuralSimilarity > 0.1 {
		t.Errorf("inverted content SSIM = %v, want near 0", res.StructuralSimilarity)
	}
}

func TestCompareNormalizesDimensions(t *testing.T) {
	ref := render(t, 64, 64, checkerboard)
	gen := render(t, 128, 128, checkerboard)

	res, err := Compare(ref, gen, DefaultOptions())
	if err != nil {
		t.Fatalf("Compare with differing dimensions: %v", err)
	}

	if res.Reference != (ImageInfo{Width: 64, Height: 64}) {
		t.Errorf("reference info = %+v", res.Reference)
	}
	if res.Generated != (ImageInfo{Width: 128, Height: 128}) {
		t.Errorf("generated info = %+v", res.Generated)
	}
	// Same pattern at double resolution stays structurally close.
	if res.StructuralSimilarity < 0.5 {
		t.Errorf("resized same pattern SSIM = %v, unexpectedly low", res.StructuralSimilarity)
	}
}

func TestCompareInvalidImages(t *testing.T) {
	good := render(t, 16, 16, white)
	garbage := []byte("definitely not an image")

	_, err := Compare(garbage, good, DefaultOptions())
	if !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Fatalf("want INVALID_IMAGE, got %v", err)
	}
	if msg := errors.UserMessage(err); !bytes.Contains([]byte(msg), []byte("reference")) {
		t.Errorf("error should name the reference image: %q", msg)
	}

	_, err = Compare(good, garbage, DefaultOptions())
	if msg := errors.UserMessage(err); !bytes.Contains([]byte(msg), []byte("generated")) {
		t.Errorf("error should name the generated image: %q", msg)
	}

	_, err = Compare(nil, good, DefaultOptions())
	if !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Errorf("empty data should be INVALID_IMAGE, got %v", err)
	}
}

func TestQuickCheck(t *testing.T) {
	a := render(t, 64, 64, checkerboard)

	similar, err := QuickCheck(a, a, DefaultOptions())
	if err != nil {
		t.Fatalf("QuickCheck: %v", err)
	}
	if !similar {
		t.Error("QuickCheck(a, a) must be true")
	}

	b := render(t, 64, 64, gradient)
	similar, err = QuickCheck(a, b, DefaultOptions())
	if err != nil {
		t.Fatalf("QuickCheck: %v", err)
	}
	if similar {
		t.Error("checkerboard and gradient should not pass the quick check")
	}
}

func TestDHashDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, gradient(x, y))
		}
	}
	if DHash(img) != DHash(img) {
		t.Error("DHash must be deterministic")
	}
	if HammingDistance(DHash(img), DHash(img)) != 0 {
		t.Error("self hash distance must be 0")
	}
}

func TestHammingDistance(t *testing.T) {
	if d := HammingDistance(0, 0); d != 0 {
		t.Errorf("HammingDistance(0, 0) = %d", d)
	}
	if d := HammingDistance(0, ^uint64(0)); d != 64 {
		t.Errorf("HammingDistance(0, ^0) = %d, want 64", d)
	}
	if d := HammingDistance(0b1011, 0b0010); d != 2 {
		t.Errorf("HammingDistance = %d, want 2", d)
	}
}
