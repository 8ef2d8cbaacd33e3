package detect

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/edgesight/go-signage/pkg/track"
)

// ssdPersonClass is the person class index in the MobileNet-SSD VOC labels.
const ssdPersonClass = 15

// ssdInputSize is the fixed network input resolution.
const ssdInputSize = 300

// DNNDetector runs a MobileNet-SSD person detector through OpenCV's DNN
// module, optionally on an accelerated backend (OpenVINO, CUDA).
type DNNDetector struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects inference
}

// NewDNN creates a DNN person detector from the configured model files.
func NewDNN(cfg Config) (*DNNDetector, error) {
	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("read model %s", cfg.ModelPath)
	}

	backend := gocv.ParseNetBackend(cfg.Backend)
	target := gocv.ParseNetTarget(cfg.Target)
	if err := net.SetPreferableBackend(gocv.NetBackendType(backend)); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend %q: %w", cfg.Backend, err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetType(target)); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target %q: %w", cfg.Target, err)
	}

	return &DNNDetector{net: net, config: cfg}, nil
}

// Detect finds people in the JPEG frame.
func (d *DNNDetector) Detect(jpeg []byte) ([]track.Detection, error) {
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

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/127.5,
		image.Pt(ssdInputSize, ssdInputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	// SSD output rows: [imageID, classID, confidence, x1, y1, x2, y2]
	// with corner coordinates normalized to 0-1.
	flat := prob.Reshape(1, prob.Total()/7)
	defer flat.Close()

	var detections []track.Detection
	for r := 0; r < flat.Rows(); r++ {
		classID := int(flat.GetFloatAt(r, 1))
		score := float64(flat.GetFloatAt(r, 2))
		if classID != ssdPersonClass || score < d.config.ConfidenceThresh {
			continue
		}

		x1 := float64(flat.GetFloatAt(r, 3)) * imgW
		y1 := float64(flat.GetFloatAt(r, 4)) * imgH
		x2 := float64(flat.GetFloatAt(r, 5)) * imgW
		y2 := float64(flat.GetFloatAt(r, 6)) * imgH

		detections = append(detections, track.Detection{
			Box:   track.Box{X: x1, Y: y1, W: x2 - x1, H: y2 - y1},
			Score: score,
		})
	}

	return detections, nil
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
