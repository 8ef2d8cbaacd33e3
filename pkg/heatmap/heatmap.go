// Package heatmap accumulates per-camera dwell statistics from tracked
// identities and produces zone reports and frame overlays.
package heatmap

import (
	"sync"
	"time"

	"github.com/edgesight/go-signage/pkg/track"
)

// Config holds dwell detection parameters.
type Config struct {
	CellSize      int           // Zone cell edge in pixels
	DwellThresh   time.Duration // Standing this long counts as a visit
	HotThresh     time.Duration // Standing this long marks a hot spot
	MoveTolerance float64       // Center displacement under this is "standing"
	Decay         float64       // Per-update heat decay factor
}

// DefaultConfig returns the recommended dwell parameters.
func DefaultConfig() Config {
	return Config{
		CellSize:      50,
		DwellThresh:   5 * time.Second,
		HotThresh:     10 * time.Second,
		MoveTolerance: 10,
		Decay:         0.98,
	}
}

// cell identifies one zone of the camera grid.
type cell struct {
	X, Y int
}

// zoneStats accumulates per-zone dwell statistics.
type zoneStats struct {
	visits      int
	hot         int
	avgDwell    float64 // Visit-weighted average dwell seconds
	dwellWeight int
}

// Tracker accumulates dwell heat for one camera. Update expects the same
// single-writer discipline as the rest of the pipeline.
type Tracker struct {
	cfg   Config
	camID string
	gridW int
	gridH int

	mu        sync.RWMutex
	heat      []float64            // gridW*gridH cells
	lastPos   map[int64][2]float64 // track ID -> last center
	stayStart map[int64]time.Time  // track ID -> when it stopped moving
	stats     map[cell]*zoneStats
}

// New creates a dwell tracker for a camera of the given frame size.
func New(cfg Config, camID string, width, height int) *Tracker {
	gw := (width + cfg.CellSize - 1) / cfg.CellSize
	gh := (height + cfg.CellSize - 1) / cfg.CellSize
	if gw < 1 {
		gw = 1
	}
	if gh < 1 {
		gh = 1
	}
	return &Tracker{
		cfg:       cfg,
		camID:     camID,
		gridW:     gw,
		gridH:     gh,
		heat:      make([]float64, gw*gh),
		lastPos:   make(map[int64][2]float64),
		stayStart: make(map[int64]time.Time),
		stats:     make(map[cell]*zoneStats),
	}
}

// Update folds one frame of tracked identities into the dwell state.
func (h *Tracker) Update(tracked []track.Track, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[int64]bool, len(tracked))
	for _, tr := range tracked {
		seen[tr.ID] = true
		cx, cy := tr.Box.Center()

		moved := false
		if last, ok := h.lastPos[tr.ID]; ok {
			dx, dy := cx-last[0], cy-last[1]
			moved = dx*dx+dy*dy >= h.cfg.MoveTolerance*h.cfg.MoveTolerance
		}
		h.lastPos[tr.ID] = [2]float64{cx, cy}

		if moved {
			delete(h.stayStart, tr.ID)
			continue
		}

		start, ok := h.stayStart[tr.ID]
		if !ok {
			h.stayStart[tr.ID] = now
			continue
		}

		dwell := now.Sub(start)
		if dwell <= h.cfg.DwellThresh {
			continue
		}

		c := h.cellAt(cx, cy)
		h.bump(c, 1.0)
		st := h.statsFor(c)
		st.visits++
		st.dwellWeight++
		st.avgDwell += (dwell.Seconds() - st.avgDwell) / float64(st.dwellWeight)

		if dwell > h.cfg.HotThresh {
			h.bump(c, 2.0)
			st.hot++
		}
	}

	// Identities gone from the frame no longer dwell anywhere.
	for id := range h.lastPos {
		if !seen[id] {
			delete(h.lastPos, id)
			delete(h.stayStart, id)
		}
	}

	for i := range h.heat {
		h.heat[i] *= h.cfg.Decay
	}
}

func (h *Tracker) cellAt(x, y float64) cell {
	c := cell{X: int(x) / h.cfg.CellSize, Y: int(y) / h.cfg.CellSize}
	if c.X < 0 {
		c.X = 0
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.X >= h.gridW {
		c.X = h.gridW - 1
	}
	if c.Y >= h.gridH {
		c.Y = h.gridH - 1
	}
	return c
}

func (h *Tracker) bump(c cell, v float64) {
	h.heat[c.Y*h.gridW+c.X] += v
}

func (h *Tracker) statsFor(c cell) *zoneStats {
	st, ok := h.stats[c]
	if !ok {
		st = &zoneStats{}
		h.stats[c] = st
	}
	return st
}
