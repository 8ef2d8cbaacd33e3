// Package track provides multi-object tracking over per-frame detections.
// It assigns persistent integer identities to detections across frames
// using greedy Intersection-over-Union matching.
package track

// Box is an axis-aligned bounding box in frame pixels.
type Box struct {
	X, Y float64 // Top-left corner
	W, H float64 // Width and height
}

// Area returns the box area in square pixels.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Center returns the center point of the box.
func (b Box) Center() (x, y float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// IoU returns the Intersection-over-Union overlap ratio of two boxes.
// The result is in [0, 1]; disjoint boxes score 0.
func IoU(a, b Box) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)

	iw := x2 - x1
	ih := y2 - y1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
