package pipeline

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signage",
		Name:      "frames_processed_total",
		Help:      "Frames that made it through the full pipeline.",
	})

	frameErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signage",
		Name:      "frame_errors_total",
		Help:      "Frames dropped by a stage failure.",
	})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signage",
		Name:      "decisions_total",
		Help:      "Selection outcomes by reason.",
	}, []string{"reason"})

	activeTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signage",
		Name:      "active_tracks",
		Help:      "Identities currently tracked, including coasting ones.",
	})

	peopleInFrame = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signage",
		Name:      "people_in_frame",
		Help:      "People confirmed in the most recent frame.",
	})

	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signage",
		Name:      "frame_duration_seconds",
		Help:      "End-to-end processing time per frame.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

// reasonLabel collapses per-rule match reasons into a bounded label set.
func reasonLabel(reason string) string {
	if strings.HasPrefix(reason, "matched:") {
		return "matched"
	}
	return reason
}
