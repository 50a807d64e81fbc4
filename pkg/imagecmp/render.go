package imagecmp

import (
	"bytes"
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

// RenderPNG paints the heatmap as a PNG overlay: each block is filled with
// red whose opacity scales with the block's intensity, and hotspot
// rectangles are outlined. When base is non-nil it is drawn underneath, so
// the overlay can be placed directly on the generated diagram; it must have
// the heatmap's pixel dimensions.
func RenderPNG(h *DifferenceHeatmap, base image.Image) ([]byte, error) {
	if h.PixelWidth <= 0 || h.PixelHeight <= 0 {
		return nil, fmt.Errorf("render heatmap: empty dimensions")
	}

	dc := gg.NewContext(h.PixelWidth, h.PixelHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if base != nil {
		dc.DrawImage(base, 0, 0)
	}

	bs := float64(h.BlockSize)
	for row := 0; row < h.Rows; row++ {
		for col := 0; col < h.Cols; col++ {
			intensity := h.Intensities[row][col]
			if intensity <= 0 {
				continue
			}
			dc.SetRGBA(1, 0, 0, 0.8*intensity)
			dc.DrawRectangle(float64(col)*bs, float64(row)*bs, bs, bs)
			dc.Fill()
		}
	}

	dc.SetRGBA(0.8, 0, 0, 0.9)
	dc.SetLineWidth(2)
	for _, hs := range h.Hotspots {
		dc.DrawRectangle(float64(hs.X), float64(hs.Y), float64(hs.Width), float64(hs.Height))
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode heatmap png: %w", err)
	}
	return buf.Bytes(), nil
}
