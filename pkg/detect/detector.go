// Package detect provides person detection backends behind a single
// capability interface. The backend is chosen once at startup; downstream
// components only ever see the uniform detection contract.
package detect

import (
	"fmt"
	"os"

	"github.com/edgesight/go-signage/internal/log"
	"github.com/edgesight/go-signage/pkg/track"
)

// Detector is the interface for person detection backends.
type Detector interface {
	// Detect finds people in a JPEG frame. Boxes are in frame pixels.
	Detect(jpeg []byte) ([]track.Detection, error)

	// Close releases backend resources.
	Close() error
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string  // Path to the DNN model (caffemodel / ONNX)
	ConfigPath       string  // Path to the model config (prototxt), if any
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	Backend          string  // "default", "openvino" or "cuda"
	Target           string  // "cpu", "fp16", "vpu", "cuda"
}

// DefaultConfig returns production defaults for the SSD person detector.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/mobilenet_ssd.caffemodel",
		ConfigPath:       "models/mobilenet_ssd.prototxt",
		ConfidenceThresh: 0.5,
		Backend:          "default",
		Target:           "cpu",
	}
}

// New selects a detection backend: the DNN detector when its model files are
// present, otherwise the CPU HOG fallback. Callers never branch on which
// implementation came back.
func New(cfg Config) (Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		d, err := NewDNN(cfg)
		if err == nil {
			log.Info("detector backend selected", "backend", "dnn", "model", cfg.ModelPath)
			return d, nil
		}
		log.Warn("dnn detector unavailable, falling back to hog", "err", err)
	}

	d, err := NewHOG(cfg)
	if err != nil {
		return nil, fmt.Errorf("no detection backend available: %w", err)
	}
	log.Info("detector backend selected", "backend", "hog")
	return d, nil
}

// FilterByScore drops detections under the score floor, preserving order.
func FilterByScore(dets []track.Detection, minScore float64) []track.Detection {
	out := dets[:0]
	for _, d := range dets {
		if d.Score >= minScore {
			out = append(out, d)
		}
	}
	return out
}
