// Package attribute estimates per-person demographic attributes from frames.
// Estimators must honor the alignment contract: given N person boxes they
// return exactly N estimates, in the same order, degrading to explicit
// unknown entries rather than omitting positions.
package attribute

import (
	"os"

	"github.com/edgesight/go-signage/internal/log"
	"github.com/edgesight/go-signage/pkg/persona"
	"github.com/edgesight/go-signage/pkg/track"
)

// Estimator is the interface for attribute estimation backends.
type Estimator interface {
	// Estimate returns one estimate per person box, position-aligned.
	Estimate(jpeg []byte, personBoxes []track.Box) ([]persona.Estimate, error)

	// Close releases backend resources.
	Close() error
}

// minFaceIoU is the minimum overlap for assigning a detected face to a
// person box. Faces are small relative to person boxes, so the bar is low.
const minFaceIoU = 0.05

// assignFaces maps each person box to the index of its best-overlapping
// face box, or -1 when no face overlaps enough. A face may serve multiple
// person boxes; ambiguity is resolved by overlap alone, as upstream person
// boxes rarely intersect.
func assignFaces(personBoxes, faceBoxes []track.Box) []int {
	out := make([]int, len(personBoxes))
	for i, pb := range personBoxes {
		best, bestIoU := -1, minFaceIoU
		for j, fb := range faceBoxes {
			if v := track.IoU(pb, fb); v > bestIoU {
				best, bestIoU = j, v
			}
		}
		out[i] = best
	}
	return out
}

// New selects an estimation backend: the DNN estimator when its model files
// are present, otherwise a Static estimator that marks everyone unknown so
// the pipeline still runs with identity-only rules.
func New(cfg Config) (Estimator, error) {
	if _, err := os.Stat(cfg.FaceModelPath); err == nil {
		e, err := NewDNN(cfg)
		if err == nil {
			log.Info("attribute backend selected", "backend", "dnn", "model", cfg.FaceModelPath)
			return e, nil
		}
		log.Warn("dnn estimator unavailable, attributes will be unknown", "err", err)
	} else {
		log.Warn("face model missing, attributes will be unknown", "path", cfg.FaceModelPath)
	}
	return &Static{Fixed: persona.Unknown()}, nil
}

// Static returns the same estimate for every person box. It serves tests
// and replay runs where attributes are known in advance.
type Static struct {
	Fixed persona.Estimate
}

// Estimate returns len(personBoxes) copies of the fixed estimate.
func (s *Static) Estimate(_ []byte, personBoxes []track.Box) ([]persona.Estimate, error) {
	out := make([]persona.Estimate, len(personBoxes))
	for i := range out {
		out[i] = s.Fixed
	}
	return out, nil
}

// Close is a no-op.
func (s *Static) Close() error { return nil }
