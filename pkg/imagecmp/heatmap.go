package imagecmp

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// HeatmapOptions configures difference-heatmap computation.
type HeatmapOptions struct {
	// BlockSize is the side length of the square blocks the images are
	// divided into. Smaller blocks localize differences more precisely at
	// higher cost.
	BlockSize int

	// SignificanceThreshold is the normalized difference above which a
	// pixel or block counts as significantly different.
	SignificanceThreshold float64

	// MaxHotspots caps the number of extracted hotspot regions.
	MaxHotspots int
}

// DefaultHeatmapOptions returns the standard heatmap configuration.
func DefaultHeatmapOptions() HeatmapOptions {
	return HeatmapOptions{
		BlockSize:             8,
		SignificanceThreshold: 0.25,
		MaxHotspots:           10,
	}
}

// Hotspot is a connected region of significantly different blocks, reported
// as a pixel rectangle with its mean intensity. Hotspots are ranked by
// intensity, strongest first.
type Hotspot struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Intensity float64 `json:"intensity"`
}

// Summary carries the cheap aggregate difference statistics that do not
// require hotspot extraction.
type Summary struct {
	MeanDiff           float64 `json:"mean_diff"`
	MaxDiff            float64 `json:"max_diff"`
	PercentSignificant float64 `json:"percent_significant"`
}

// DifferenceHeatmap is a per-block intensity map of the visual difference
// between two images, plus extracted hotspots and summary statistics.
// Intensities are normalized to [0,1] where 0 means identical.
type DifferenceHeatmap struct {
	BlockSize   int         `json:"block_size"`
	Cols        int         `json:"cols"`
	Rows        int         `json:"rows"`
	PixelWidth  int         `json:"pixel_width"`
	PixelHeight int         `json:"pixel_height"`
	Intensities [][]float64 `json:"intensities"` // [row][col]
	Hotspots    []Hotspot   `json:"hotspots"`
	Summary     Summary     `json:"summary"`
}

// ComputeHeatmap decodes both images, normalizes dimensions, and builds the
// full difference heatmap with hotspot extraction.
func ComputeHeatmap(refData, genData []byte, opts HeatmapOptions) (*DifferenceHeatmap, error) {
	ref, gen, err := decodePair(refData, genData)
	if err != nil {
		return nil, err
	}
	return buildHeatmap(toGray(ref), toGray(gen), opts), nil
}

// QuickSummary decodes both images and returns only the aggregate
// difference statistics, skipping block accumulation and hotspot
// extraction. This is the fast path for cheap comparisons.
func QuickSummary(refData, genData []byte, opts HeatmapOptions) (*Summary, error) {
	ref, gen, err := decodePair(refData, genData)
	if err != nil {
		return nil, err
	}

	a := toGray(ref)
	b := toGray(gen)
	s := pixelSummary(a, b, opts.SignificanceThreshold)
	return &s, nil
}

// decodePair decodes both images and resizes the generated one to the
// reference's dimensions when they differ.
func decodePair(refData, genData []byte) (image.Image, image.Image, error) {
	ref, err := decode(refData, "reference")
	if err != nil {
		return nil, nil, err
	}
	gen, err := decode(genData, "generated")
	if err != nil {
		return nil, nil, err
	}
	if infoOf(ref) != infoOf(gen) {
		b := ref.Bounds()
		gen = imaging.Resize(gen, b.Dx(), b.Dy(), imaging.Lanczos)
	}
	return ref, gen, nil
}

// pixelSummary computes per-pixel aggregate statistics without block
// accumulation.
func pixelSummary(a, b *grayImage, significance float64) Summary {
	var s Summary
	n := len(a.pix)
	if n == 0 || n != len(b.pix) {
		return s
	}

	significant := 0
	sum := 0.0
	for i := range a.pix {
		d := (a.pix[i] - b.pix[i]) / 255
		if d < 0 {
			d = -d
		}
		sum += d
		if d > s.MaxDiff {
			s.MaxDiff = d
		}
		if d > significance {
			significant++
		}
	}
	s.MeanDiff = sum / float64(n)
	s.PercentSignificant = 100 * float64(significant) / float64(n)
	return s
}

// buildHeatmap accumulates per-block mean absolute differences, extracts
// connected hotspot regions, and fills the pixel-level summary.
func buildHeatmap(a, b *grayImage, opts HeatmapOptions) *DifferenceHeatmap {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultHeatmapOptions().BlockSize
	}
	bs := opts.BlockSize

	cols := (a.w + bs - 1) / bs
	rows := (a.h + bs - 1) / bs
	h := &DifferenceHeatmap{
		BlockSize:   bs,
		Cols:        cols,
		Rows:        rows,
		PixelWidth:  a.w,
		PixelHeight: a.h,
		Intensities: make([][]float64, rows),
		Summary:     pixelSummary(a, b, opts.SignificanceThreshold),
	}

	for row := 0; row < rows; row++ {
		h.Intensities[row] = make([]float64, cols)
		for col := 0; col < cols; col++ {
			h.Intensities[row][col] = blockDiff(a, b, col*bs, row*bs, bs)
		}
	}

	h.Hotspots = extractHotspots(h, opts)
	return h
}

// blockDiff returns the mean absolute normalized difference over one block.
func blockDiff(a, b *grayImage, x0, y0, bs int) float64 {
	x1 := min(x0+bs, a.w)
	y1 := min(y0+bs, a.h)
	sum := 0.0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := (a.at(x, y) - b.at(x, y)) / 255
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return sum / float64((x1-x0)*(y1-y0))
}

// extractHotspots finds connected regions (4-neighborhood) of blocks whose
// intensity exceeds the significance threshold, computes each region's
// bounding rectangle in pixel coordinates and mean intensity, and returns
// the strongest regions first.
func extractHotspots(h *DifferenceHeatmap, opts HeatmapOptions) []Hotspot {
	visited := make([][]bool, h.Rows)
	for i := range visited {
		visited[i] = make([]bool, h.Cols)
	}

	type cell struct{ row, col int }
	var hotspots []Hotspot

	for row := 0; row < h.Rows; row++ {
		for col := 0; col < h.Cols; col++ {
			if visited[row][col] || h.Intensities[row][col] <= opts.SignificanceThreshold {
				continue
			}

			// Flood fill the connected region.
			minR, maxR, minC, maxC := row, row, col, col
			sum, count := 0.0, 0
			queue := []cell{{row, col}}
			visited[row][col] = true
			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				sum += h.Intensities[c.row][c.col]
				count++
				minR = min(minR, c.row)
				maxR = max(maxR, c.row)
				minC = min(minC, c.col)
				maxC = max(maxC, c.col)

				for _, nb := range []cell{{c.row - 1, c.col}, {c.row + 1, c.col}, {c.row, c.col - 1}, {c.row, c.col + 1}} {
					if nb.row < 0 || nb.row >= h.Rows || nb.col < 0 || nb.col >= h.Cols {
						continue
					}
					if visited[nb.row][nb.col] || h.Intensities[nb.row][nb.col] <= opts.SignificanceThreshold {
						continue
					}
					visited[nb.row][nb.col] = true
					queue = append(queue, nb)
				}
			}

			bs := h.BlockSize
			hs := Hotspot{
				X:         minC * bs,
				Y:         minR * bs,
				Width:     min((maxC+1)*bs, h.PixelWidth) - minC*bs,
				Height:    min((maxR+1)*bs, h.PixelHeight) - minR*bs,
				Intensity: sum / float64(count),
			}
			hotspots = append(hotspots, hs)
		}
	}

	sort.Slice(hotspots, func(i, j int) bool {
		return hotspots[i].Intensity > hotspots[j].Intensity
	})
	if opts.MaxHotspots > 0 && len(hotspots) > opts.MaxHotspots {
		hotspots = hotspots[:opts.MaxHotspots]
	}
	return hotspots
}
