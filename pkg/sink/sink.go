// Package sink delivers per-frame output selections to whatever renders
// them. The pipeline has no knowledge of how a selection is displayed.
package sink

import (
	"time"

	"github.com/edgesight/go-signage/internal/log"
)

// Event is one frame's selection outcome as delivered to a renderer.
// A Creative of "" is the explicit no-selection sentinel; Reason says why.
type Event struct {
	Camera      string    `json:"camera"`
	Seq         uint64    `json:"seq"`
	Timestamp   time.Time `json:"ts"`
	Creative    string    `json:"creative,omitempty"`
	Reason      string    `json:"reason"`
	PeopleCount int       `json:"people_count"`
}

// Sink consumes selection events.
type Sink interface {
	Publish(Event) error
	Close() error
}

// LogSink writes selections to the structured log. It is the default sink
// when no display player is configured.
type LogSink struct{}

// Publish logs the event.
func (LogSink) Publish(ev Event) error {
	if ev.Creative == "" {
		log.Debug("no selection", "camera", ev.Camera, "seq", ev.Seq, "reason", ev.Reason)
		return nil
	}
	log.Info("selection", "camera", ev.Camera, "seq", ev.Seq,
		"creative", ev.Creative, "reason", ev.Reason, "people", ev.PeopleCount)
	return nil
}

// Close is a no-op.
func (LogSink) Close() error { return nil }

// Multi fans one event out to several sinks; the first error wins but every
// sink still sees the event.
type Multi []Sink

// Publish delivers the event to every sink.
func (m Multi) Publish(ev Event) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
