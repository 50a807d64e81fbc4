package imagecmp

import (
	"image"

	"github.com/disintegration/imaging"
)

// hashBits is the perceptual-hash fingerprint length. The difference hash
// reduces the image to a 9x8 grid, producing one bit per horizontal
// gradient: 8 bits per row across 8 rows.
const hashBits = 64

// dHash grid dimensions: one extra column so every row yields 8 gradients.
const (
	dhashCols = 9
	dhashRows = 8
)

// DHash computes a 64-bit difference hash of the image's coarse visual
// structure. The image is grayscaled and shrunk to 9x8; each bit records
// whether a pixel is brighter than its right neighbor. The hash is
// resolution-invariant and robust to uniform brightness shifts, making it a
// cheap first-pass similarity fingerprint.
func DHash(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, dhashCols, dhashRows, imaging.Lanczos))

	var hash uint64
	bit := 0
	for y := 0; y < dhashRows; y++ {
		for x := 0; x < dhashCols-1; x++ {
			left := small.NRGBAAt(x, y).R
			right := small.NRGBAAt(x+1, y).R
			if left > right {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash
}
