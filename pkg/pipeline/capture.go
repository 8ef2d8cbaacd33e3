package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// DeviceSource captures frames directly from a local device index, a V4L2
// path or an RTSP URL via OpenCV. Frames are re-encoded to JPEG so every
// downstream stage sees the same frame format as the snapshot source.
type DeviceSource struct {
	cap *gocv.VideoCapture
	img gocv.Mat
	seq uint64
}

// NewDeviceSource opens the capture device.
func NewDeviceSource(device string) (*DeviceSource, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", device, err)
	}
	return &DeviceSource{cap: cap, img: gocv.NewMat()}, nil
}

// Next grabs and encodes one frame. Capture reads are blocking; the context
// is only checked between frames.
func (s *DeviceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if ok := s.cap.Read(&s.img); !ok || s.img.Empty() {
		return Frame{}, errors.New("capture read failed")
	}

	buf, err := gocv.IMEncode(".jpg", s.img)
	if err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	s.seq++
	return Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		Width:     s.img.Cols(),
		Height:    s.img.Rows(),
		JPEG:      data,
	}, nil
}

// Close releases the device.
func (s *DeviceSource) Close() error {
	s.img.Close()
	return s.cap.Close()
}

// OpenSource picks a frame source for the camera URL: HTTP endpoints get
// the snapshot source, everything else (device index, /dev path, rtsp://)
// goes through OpenCV capture.
func OpenSource(url string) (Source, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return NewSnapshotSource(url), nil
	}
	return NewDeviceSource(url)
}
