// Package imagecmp compares two raster renderings of a diagram using
// structural similarity and perceptual hashing, and can derive a visual
// difference heatmap with hotspot extraction.
//
// # Algorithms
//
// Structural similarity is computed over 8x8 windows of the luminance
// channel, comparing local mean, variance, and covariance with the standard
// stabilizing constants. The perceptual hash is a 64-bit difference hash:
// the image is reduced to 9x8 grayscale and each bit records whether a pixel
// is brighter than its right neighbor. Hashes are compared by Hamming
// distance.
//
// # Determinism and Concurrency
//
// All comparisons are pure functions over the decoded pixel data; windows
// and blocks are visited in fixed row-major order, so identical inputs
// produce identical scores. Nothing here holds state, so the package is safe
// to call from any goroutine; it is also CPU-heavy enough that UI hosts
// should call it off the interaction thread.
//
// # Tunables
//
// The hash length and the "similar" cutoffs are empirical. They are carried
// in [Options] rather than baked into the algorithms, because thresholds
// validated for one fingerprint size do not transfer to another.
package imagecmp

import (
	"bytes"
	"image"
	"math/bits"

	"github.com/disintegration/imaging"

	"github.com/archlens/archlens/pkg/errors"
)

// Options configures a comparison. The two weights blend the structural and
// perceptual scores; they are independent of the readability/similarity
// blend applied by the combined scorer.
type Options struct {
	// StructuralWeight and PerceptualWeight blend the two sub-scores into
	// the combined score. They should sum to 1.
	StructuralWeight float64
	PerceptualWeight float64

	// SimilarityThreshold is the combined-score cutoff for the Similar flag.
	SimilarityThreshold float64

	// HashDistanceThreshold is the maximum Hamming distance (out of 64 bits)
	// at which the quick check still considers two images similar.
	HashDistanceThreshold int
}

// DefaultOptions returns the default comparison configuration: a 60/40
// structural/perceptual blend, combined-score similarity at 0.85, and a
// 6-bit hash distance for the quick check.
func DefaultOptions() Options {
	return Options{
		StructuralWeight:      0.6,
		PerceptualWeight:      0.4,
		SimilarityThreshold:   0.85,
		HashDistanceThreshold: 6,
	}
}

// ImageInfo carries the dimensions of a decoded source image.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the outcome of comparing a generated diagram rendering against
// a reference. Produced fresh per comparison; never cached.
type Result struct {
	StructuralSimilarity float64 `json:"structural_similarity"`
	HashDistance         int     `json:"hash_distance"`
	CombinedScore        float64 `json:"combined_score"`
	Similar              bool    `json:"similar"`

	Reference ImageInfo `json:"reference"`
	Generated ImageInfo `json:"generated"`
}

// Compare decodes both images and computes the full similarity result.
// Images of differing dimensions are normalized by resizing the generated
// image to the reference's dimensions before structural comparison; the
// perceptual hash is size-invariant by construction.
//
// Decoding failures are reported as INVALID_IMAGE errors naming which image
// failed, never as panics.
func Compare(refData, genData []byte, opts Options) (*Result, error) {
	ref, err := decode(refData, "reference")
	if err != nil {
		return nil, err
	}
	gen, err := decode(genData, "generated")
	if err != nil {
		return nil, err
	}

	res := &Result{
		Reference: infoOf(ref),
		Generated: infoOf(gen),
	}

	normalized := gen
	if res.Generated != res.Reference {
		normalized = imaging.Resize(gen, res.Reference.Width, res.Reference.Height, imaging.Lanczos)
	}

	res.StructuralSimilarity = SSIM(toGray(ref), toGray(normalized))
	res.HashDistance = HammingDistance(DHash(ref), DHash(gen))

	perceptual := 1 - float64(res.HashDistance)/float64(hashBits)
	res.CombinedScore = clamp01(opts.StructuralWeight*res.StructuralSimilarity + opts.PerceptualWeight*perceptual)
	res.Similar = res.CombinedScore >= opts.SimilarityThreshold

	return res, nil
}

// QuickCheck is the cheap binary path: it compares perceptual hashes only
// and skips the windowed structural comparison entirely. Callers that just
// need a yes/no answer should prefer this over [Compare].
func QuickCheck(refData, genData []byte, opts Options) (bool, error) {
	ref, err := decode(refData, "reference")
	if err != nil {
		return false, err
	}
	gen, err := decode(genData, "generated")
	if err != nil {
		return false, err
	}
	d := HammingDistance(DHash(ref), DHash(gen))
	return d <= opts.HashDistanceThreshold, nil
}

// decode turns raw bytes into an image, attributing failures to the named
// source so callers can tell the user which file is broken.
func decode(data []byte, which string) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidImage, "%s image: empty data", which)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "%s image: decode failed", which)
	}
	return img, nil
}

func infoOf(img image.Image) ImageInfo {
	b := img.Bounds()
	return ImageInfo{Width: b.Dx(), Height: b.Dy()}
}

// HammingDistance returns the number of differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
