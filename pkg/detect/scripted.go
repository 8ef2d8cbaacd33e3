package detect

import (
	"sync"

	"github.com/edgesight/go-signage/pkg/track"
)

// Scripted replays a fixed sequence of detection lists, one per Detect call.
// It serves pipeline tests and offline replay of recorded sessions; after
// the script is exhausted it keeps returning empty frames.
type Scripted struct {
	mu     sync.Mutex
	frames [][]track.Detection
	next   int
}

// NewScripted creates a detector that replays the given frames in order.
func NewScripted(frames [][]track.Detection) *Scripted {
	return &Scripted{frames: frames}
}

// Detect returns the next scripted frame, ignoring the image data.
func (s *Scripted) Detect(_ []byte) ([]track.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		return nil, nil
	}
	out := s.frames[s.next]
	s.next++
	return out, nil
}

// Close is a no-op.
func (s *Scripted) Close() error { return nil }
