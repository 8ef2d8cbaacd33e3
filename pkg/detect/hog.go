package detect

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/edgesight/go-signage/pkg/track"
)

// hogScore is the score assigned to HOG detections: the classic OpenCV
// pedestrian HOG exposes no per-detection confidence.
const hogScore = 1.0

// HOGDetector is the CPU fallback person detector using OpenCV's built-in
// HOG pedestrian descriptor. Slower and coarser than the DNN backend, but
// it needs no model files.
type HOGDetector struct {
	hog gocv.HOGDescriptor
	mu  sync.Mutex // Protects inference
}

// NewHOG creates the HOG fallback detector.
func NewHOG(cfg Config) (*HOGDetector, error) {
	hog := gocv.NewHOGDescriptor()
	if err := hog.SetSVMDetector(gocv.HOGDefaultPeopleDetector()); err != nil {
		hog.Close()
		return nil, fmt.Errorf("init hog detector: %w", err)
	}
	return &HOGDetector{hog: hog}, nil
}

// Detect finds people in the JPEG frame.
func (d *HOGDetector) Detect(jpeg []byte) ([]track.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	rects := d.hog.DetectMultiScale(img)
	detections := make([]track.Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, track.Detection{
			Box: track.Box{
				X: float64(r.Min.X),
				Y: float64(r.Min.Y),
				W: float64(r.Dx()),
				H: float64(r.Dy()),
			},
			Score: hogScore,
		})
	}

	return detections, nil
}

// Close releases the descriptor.
func (d *HOGDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hog.Close()
}
