// Package pipeline wires detection, tracking, persona fusion, decisioning
// and delivery into a single per-frame pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgesight/go-signage/internal/log"
	"github.com/edgesight/go-signage/pkg/attribute"
	"github.com/edgesight/go-signage/pkg/decision"
	"github.com/edgesight/go-signage/pkg/detect"
	"github.com/edgesight/go-signage/pkg/heatmap"
	"github.com/edgesight/go-signage/pkg/persona"
	"github.com/edgesight/go-signage/pkg/sink"
	"github.com/edgesight/go-signage/pkg/track"
)

// Config holds the per-node pipeline settings.
type Config struct {
	CameraID       string
	MinPersonScore float64
}

// Deps are the pipeline's stages. Heat is optional; everything else is
// required.
type Deps struct {
	Detector  detect.Detector
	Estimator attribute.Estimator
	Tracker   *track.Tracker
	Fuser     *persona.Fuser
	Engine    *decision.Engine
	Heat      *heatmap.Tracker
	Sink      sink.Sink
}

// Result is everything one frame produced, for callers that want more
// than the sink event (dashboard, tests).
type Result struct {
	Context  persona.Context
	Persons  []persona.Person
	Tracked  []track.Track
	Decision decision.Decision
}

// Pipeline runs the per-frame pass. It is not safe for concurrent use;
// frames are strictly sequential.
type Pipeline struct {
	cfg  Config
	deps Deps

	// OnResult, if set, is called after every successful frame.
	OnResult func(Result)
}

// New creates a pipeline from its stages.
func New(cfg Config, deps Deps) *Pipeline {
	return &Pipeline{cfg: cfg, deps: deps}
}

// ProcessFrame runs one frame through every stage in order. A stage
// failure drops the frame; tracker and engine state are only advanced by
// frames that completed their stage.
func (p *Pipeline) ProcessFrame(frame Frame) (Result, error) {
	timer := prometheus.NewTimer(frameDuration)
	defer timer.ObserveDuration()

	dets, err := p.deps.Detector.Detect(frame.JPEG)
	if err != nil {
		frameErrors.Inc()
		return Result{}, fmt.Errorf("detect: %w", err)
	}
	dets = detect.FilterByScore(dets, p.cfg.MinPersonScore)

	tracked := p.deps.Tracker.Update(dets)
	activeTracks.Set(float64(p.deps.Tracker.LiveCount()))

	boxes := make([]track.Box, len(tracked))
	for i, tr := range tracked {
		boxes[i] = tr.Box
	}
	estimates, err := p.deps.Estimator.Estimate(frame.JPEG, boxes)
	if err != nil {
		frameErrors.Inc()
		return Result{}, fmt.Errorf("estimate: %w", err)
	}

	info := persona.FrameInfo{
		CameraID:  p.cfg.CameraID,
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
	}
	pctx, persons, err := p.deps.Fuser.Fuse(info, tracked, estimates)
	if err != nil {
		frameErrors.Inc()
		return Result{}, fmt.Errorf("fuse: %w", err)
	}

	dec := p.deps.Engine.Choose(pctx)

	if p.deps.Heat != nil {
		p.deps.Heat.Update(tracked, frame.Timestamp)
	}

	if p.deps.Sink != nil {
		ev := sink.Event{
			Camera:      p.cfg.CameraID,
			Seq:         frame.Seq,
			Timestamp:   frame.Timestamp,
			Creative:    dec.Creative,
			Reason:      dec.Reason,
			PeopleCount: pctx.PeopleCount,
		}
		if err := p.deps.Sink.Publish(ev); err != nil {
			log.Warn("sink publish failed", "seq", frame.Seq, "error", err)
		}
	}

	framesTotal.Inc()
	peopleInFrame.Set(float64(pctx.PeopleCount))
	decisionsTotal.WithLabelValues(reasonLabel(dec.Reason)).Inc()

	res := Result{
		Context:  pctx,
		Persons:  persons,
		Tracked:  tracked,
		Decision: dec,
	}
	if p.OnResult != nil {
		p.OnResult(res)
	}
	return res, nil
}

// Run pulls frames from the source at the given interval until the context
// is done. Fetch and processing failures are logged and skipped; the loop
// only stops with the context.
func (p *Pipeline) Run(ctx context.Context, src Source, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame, err := src.Next(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Warn("frame fetch failed", "error", err)
				continue
			}
			if _, err := p.ProcessFrame(frame); err != nil {
				log.Error("frame dropped", "seq", frame.Seq, "error", err)
			}
		}
	}
}

// Close releases the pipeline's stages.
func (p *Pipeline) Close() {
	if p.deps.Detector != nil {
		p.deps.Detector.Close()
	}
	if p.deps.Estimator != nil {
		p.deps.Estimator.Close()
	}
	if p.deps.Sink != nil {
		p.deps.Sink.Close()
	}
}
