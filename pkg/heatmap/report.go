package heatmap

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Zone is one grid cell's dwell summary.
type Zone struct {
	Zone     string  `json:"zone"` // "(x,y)" cell coordinates
	Visits   int     `json:"visits"`
	HotSpots int     `json:"hot_spots"`
	AvgDwell float64 `json:"avg_dwell"` // Seconds, visit-weighted
}

// Report is one camera's dwell report.
type Report struct {
	ID          string `json:"id"`
	Camera      string `json:"camera"`
	GeneratedAt string `json:"generated_at"`
	CellSizePx  int    `json:"cell_size_px"`
	Zones       []Zone `json:"zones"`
}

// Master aggregates every camera report in a directory.
type Master struct {
	GeneratedAt string   `json:"generated_at"`
	Cameras     []Report `json:"cameras"`
	Aggregate   struct {
		CellSizePx int    `json:"cell_size_px"`
		Zones      []Zone `json:"zones"`
	} `json:"aggregate"`
}

// Snapshot builds the current report for this camera.
func (h *Tracker) Snapshot(now time.Time) Report {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cells := make([]cell, 0, len(h.stats))
	for c := range h.stats {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Y < cells[j].Y
	})

	zones := make([]Zone, 0, len(cells))
	for _, c := range cells {
		st := h.stats[c]
		zones = append(zones, Zone{
			Zone:     fmt.Sprintf("(%d,%d)", c.X, c.Y),
			Visits:   st.visits,
			HotSpots: st.hot,
			AvgDwell: math.Round(st.avgDwell*100) / 100,
		})
	}

	return Report{
		ID:          uuid.NewString(),
		Camera:      h.camID,
		GeneratedAt: now.Format(time.RFC3339),
		CellSizePx:  h.cfg.CellSize,
		Zones:       zones,
	}
}

// SaveReport writes this camera's report to <dir>/<camID>_heatmap.json
// and returns the path.
func (h *Tracker) SaveReport(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	report := h.Snapshot(now)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, h.camID+"_heatmap.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// CombineReports merges every *_heatmap.json in dir into a master report at
// masterPath (default <dir>/master_heatmap.json). Per-zone average dwell is
// weighted by visits across cameras. Unreadable reports are skipped.
func CombineReports(dir, masterPath string, now time.Time) (string, error) {
	if masterPath == "" {
		masterPath = filepath.Join(dir, "master_heatmap.json")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read report dir: %w", err)
	}

	type agg struct {
		visits   int
		hot      int
		dwellSum float64
		dwellW   float64
	}

	var master Master
	master.GeneratedAt = now.Format(time.RFC3339)
	zones := make(map[string]*agg)
	cellMin := 0

	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), "_heatmap.json") {
			continue
		}
		// A previous master in the same dir must not be re-aggregated.
		if filepath.Join(dir, ent.Name()) == masterPath {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			continue
		}
		var rep Report
		if err := json.Unmarshal(raw, &rep); err != nil || rep.Zones == nil {
			continue
		}
		master.Cameras = append(master.Cameras, rep)

		if rep.CellSizePx > 0 && (cellMin == 0 || rep.CellSizePx < cellMin) {
			cellMin = rep.CellSizePx
		}
		for _, z := range rep.Zones {
			a, ok := zones[z.Zone]
			if !ok {
				a = &agg{}
				zones[z.Zone] = a
			}
			w := float64(z.Visits)
			if w < 1 {
				w = 1
			}
			a.visits += z.Visits
			a.hot += z.HotSpots
			a.dwellSum += z.AvgDwell * w
			a.dwellW += w
		}
	}

	names := make([]string, 0, len(zones))
	for name := range zones {
		names = append(names, name)
	}
	sort.Strings(names)

	master.Aggregate.CellSizePx = cellMin
	for _, name := range names {
		a := zones[name]
		master.Aggregate.Zones = append(master.Aggregate.Zones, Zone{
			Zone:     name,
			Visits:   a.visits,
			HotSpots: a.hot,
			AvgDwell: math.Round(a.dwellSum/a.dwellW*100) / 100,
		})
	}

	data, err := json.MarshalIndent(master, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode master report: %w", err)
	}
	if err := os.WriteFile(masterPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write master report: %w", err)
	}
	return masterPath, nil
}
