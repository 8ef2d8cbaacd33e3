package pipeline

import (
	"context"
	"time"
)

// Frame is one decoded-enough camera frame: the JPEG bytes plus the
// metadata every downstream stage keys on.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	JPEG      []byte
}

// Source produces frames. Next blocks until a frame is available or the
// context is done.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}
