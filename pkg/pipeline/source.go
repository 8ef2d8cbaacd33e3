package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	"github.com/edgesight/go-signage/internal/httpc"
)

// maxFrameBytes caps a single snapshot read; anything larger is not a
// camera frame.
const maxFrameBytes = 16 << 20

// SnapshotSource pulls JPEG stills from an HTTP snapshot endpoint, the
// common lowest denominator for IP cameras.
type SnapshotSource struct {
	url string
	seq uint64
}

// NewSnapshotSource creates a source for the given snapshot URL.
func NewSnapshotSource(url string) *SnapshotSource {
	return &SnapshotSource{url: url}
}

// Next fetches one frame. Sequence numbers only count successful fetches.
func (s *SnapshotSource) Next(ctx context.Context) (Frame, error) {
	resp, err := httpc.GetContext(ctx, s.url)
	if err != nil {
		return Frame{}, fmt.Errorf("snapshot fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Frame{}, fmt.Errorf("snapshot fetch: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return Frame{}, fmt.Errorf("snapshot read: %w", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("snapshot decode: %w", err)
	}

	s.seq++
	return Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		JPEG:      data,
	}, nil
}

// Close implements Source.
func (s *SnapshotSource) Close() error {
	return nil
}
