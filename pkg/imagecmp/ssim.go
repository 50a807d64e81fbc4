package imagecmp

import (
	"image"
	"image/color"
)

// SSIM stabilizing constants for an 8-bit dynamic range, per the original
// formulation: C1 = (K1*L)^2, C2 = (K2*L)^2 with K1=0.01, K2=0.03, L=255.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// ssimWindow is the side length of the square comparison window.
const ssimWindow = 8

// grayImage is a luminance matrix in [0,255] row-major order.
type grayImage struct {
	w, h int
	pix  []float64
}

func (g *grayImage) at(x, y int) float64 {
	return g.pix[y*g.w+x]
}

// toGray extracts the luminance channel from an image.
func toGray(img image.Image) *grayImage {
	b := img.Bounds()
	g := &grayImage{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.pix[i] = float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			i++
		}
	}
	return g
}

// SSIM computes the mean structural similarity between two equal-sized
// luminance images over non-overlapping 8x8 windows, in [0,1] with 1
// meaning structurally identical. Partial windows at the right and bottom
// edges are included. Images must have identical dimensions; the caller
// normalizes sizes first.
func SSIM(a, b *grayImage) float64 {
	if a.w != b.w || a.h != b.h || a.w == 0 || a.h == 0 {
		return 0
	}

	total := 0.0
	windows := 0
	for wy := 0; wy < a.h; wy += ssimWindow {
		for wx := 0; wx < a.w; wx += ssimWindow {
			total += windowSSIM(a, b, wx, wy)
			windows++
		}
	}
	return total / float64(windows)
}

// windowSSIM compares one window of the two images: local means, variances,
// and covariance combined with the stabilizing constants. The raw index
// ranges over [-1,1]; anti-correlated windows are floored at 0 so the
// aggregate stays inside the documented [0,1] range.
func windowSSIM(a, b *grayImage, wx, wy int) float64 {
	x1 := min(wx+ssimWindow, a.w)
	y1 := min(wy+ssimWindow, a.h)
	n := float64((x1 - wx) * (y1 - wy))

	var sumA, sumB float64
	for y := wy; y < y1; y++ {
		for x := wx; x < x1; x++ {
			sumA += a.at(x, y)
			sumB += b.at(x, y)
		}
	}
	muA := sumA / n
	muB := sumB / n

	var varA, varB, cov float64
	for y := wy; y < y1; y++ {
		for x := wx; x < x1; x++ {
			da := a.at(x, y) - muA
			db := b.at(x, y) - muB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
	s := num / den
	if s < 0 {
		return 0
	}
	return s
}
