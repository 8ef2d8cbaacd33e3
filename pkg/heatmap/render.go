package heatmap

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// maxOverlayAlpha caps overlay opacity so the underlying frame stays visible.
const maxOverlayAlpha = 96

// RenderOverlay draws the current heat grid onto dst, scaled to its bounds.
// Cold cells stay transparent; warm cells blend from blue through red.
func (h *Tracker) RenderOverlay(dst *image.RGBA) {
	h.mu.RLock()
	peak := 0.0
	for _, v := range h.heat {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		h.mu.RUnlock()
		return
	}

	small := image.NewRGBA(image.Rect(0, 0, h.gridW, h.gridH))
	for y := 0; y < h.gridH; y++ {
		for x := 0; x < h.gridW; x++ {
			small.SetRGBA(x, y, heatColor(h.heat[y*h.gridW+x]/peak))
		}
	}
	h.mu.RUnlock()

	xdraw.BiLinear.Scale(dst, dst.Bounds(), small, small.Bounds(), xdraw.Over, nil)
}

// heatColor maps a normalized heat value (0-1) to a premultiplied RGBA
// sample on a blue-to-red gradient with heat-proportional opacity.
func heatColor(v float64) color.RGBA {
	if v <= 0 {
		return color.RGBA{}
	}
	if v > 1 {
		v = 1
	}
	a := uint8(v * maxOverlayAlpha)
	// Premultiplied channels: scale the gradient by alpha.
	r := uint8(v * float64(a))
	b := uint8((1 - v) * float64(a))
	return color.RGBA{R: r, G: 0, B: b, A: a}
}
