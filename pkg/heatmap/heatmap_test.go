package heatmap

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgesight/go-signage/pkg/track"
)

var t0 = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func standing(id int64, x, y float64) track.Track {
	return track.Track{ID: id, Box: track.Box{X: x - 25, Y: y - 50, W: 50, H: 100}}
}

func TestTracker_DwellCountsVisit(t *testing.T) {
	cfg := DefaultConfig()
	h := New(cfg, "cam1", 640, 480)

	// Person stands still at (100,100) for 8 seconds of one-second frames.
	for i := 0; i <= 8; i++ {
		h.Update([]track.Track{standing(1, 100, 100)}, t0.Add(time.Duration(i)*time.Second))
	}

	rep := h.Snapshot(t0.Add(9 * time.Second))
	if len(rep.Zones) != 1 {
		t.Fatalf("got %d zones, want 1", len(rep.Zones))
	}
	z := rep.Zones[0]
	if z.Zone != "(2,2)" {
		t.Errorf("zone: got %s, want (2,2)", z.Zone)
	}
	// Dwell exceeds the 5s threshold from the 6s mark on: frames at 6,7,8.
	if z.Visits != 3 {
		t.Errorf("visits: got %d, want 3", z.Visits)
	}
	if z.HotSpots != 0 {
		t.Errorf("hot spots: got %d, want 0 under 10s", z.HotSpots)
	}
	if z.AvgDwell < 6 || z.AvgDwell > 8.5 {
		t.Errorf("avg dwell: got %v, want about 7s", z.AvgDwell)
	}
}

func TestTracker_HotSpot(t *testing.T) {
	h := New(DefaultConfig(), "cam1", 640, 480)

	for i := 0; i <= 12; i++ {
		h.Update([]track.Track{standing(1, 300, 200)}, t0.Add(time.Duration(i)*time.Second))
	}

	rep := h.Snapshot(t0)
	if len(rep.Zones) != 1 {
		t.Fatalf("got %d zones, want 1", len(rep.Zones))
	}
	if rep.Zones[0].HotSpots == 0 {
		t.Errorf("no hot spot recorded after 12s of standing")
	}
}

func TestTracker_MovingResetsDwell(t *testing.T) {
	h := New(DefaultConfig(), "cam1", 640, 480)

	// Walks 40px per second: never dwells.
	for i := 0; i <= 10; i++ {
		h.Update([]track.Track{standing(1, float64(100+i*40), 100)}, t0.Add(time.Duration(i)*time.Second))
	}

	rep := h.Snapshot(t0)
	if len(rep.Zones) != 0 {
		t.Errorf("moving person produced %d dwell zones", len(rep.Zones))
	}
}

func TestTracker_VanishedIdentityIsForgotten(t *testing.T) {
	h := New(DefaultConfig(), "cam1", 640, 480)

	h.Update([]track.Track{standing(1, 100, 100)}, t0)
	h.Update(nil, t0.Add(time.Second)) // person leaves

	// Returns 10 seconds later: dwell clock must restart, not resume.
	h.Update([]track.Track{standing(1, 100, 100)}, t0.Add(11*time.Second))
	h.Update([]track.Track{standing(1, 100, 100)}, t0.Add(13*time.Second))

	rep := h.Snapshot(t0)
	if len(rep.Zones) != 0 {
		t.Errorf("dwell credited across an absence: %+v", rep.Zones)
	}
}

func TestSaveAndCombineReports(t *testing.T) {
	dir := t.TempDir()

	mk := func(cam string, x, y float64) {
		h := New(DefaultConfig(), cam, 640, 480)
		for i := 0; i <= 8; i++ {
			h.Update([]track.Track{standing(1, x, y)}, t0.Add(time.Duration(i)*time.Second))
		}
		if _, err := h.SaveReport(dir, t0.Add(9*time.Second)); err != nil {
			t.Fatalf("save %s: %v", cam, err)
		}
	}
	mk("cam1", 100, 100)
	mk("cam2", 100, 100) // same zone as cam1
	mk("cam3", 600, 400) // different zone

	path, err := CombineReports(dir, "", t0.Add(10*time.Second))
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if filepath.Base(path) != "master_heatmap.json" {
		t.Errorf("master path: got %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	var master Master
	if err := json.Unmarshal(raw, &master); err != nil {
		t.Fatalf("decode master: %v", err)
	}

	if len(master.Cameras) != 3 {
		t.Errorf("got %d cameras, want 3", len(master.Cameras))
	}
	if len(master.Aggregate.Zones) != 2 {
		t.Fatalf("got %d aggregate zones, want 2", len(master.Aggregate.Zones))
	}

	// cam1+cam2 share zone (2,2): visits add up.
	var shared *Zone
	for i := range master.Aggregate.Zones {
		if master.Aggregate.Zones[i].Zone == "(2,2)" {
			shared = &master.Aggregate.Zones[i]
		}
	}
	if shared == nil {
		t.Fatalf("shared zone (2,2) missing from aggregate")
	}
	if shared.Visits != 6 {
		t.Errorf("shared zone visits: got %d, want 6", shared.Visits)
	}
}

func TestRenderOverlay(t *testing.T) {
	h := New(DefaultConfig(), "cam1", 200, 200)
	frame := image.NewRGBA(image.Rect(0, 0, 200, 200))

	// Cold map leaves the frame untouched.
	h.RenderOverlay(frame)
	if frame.RGBAAt(100, 100).A != 0 {
		t.Errorf("cold overlay wrote pixels")
	}

	for i := 0; i <= 8; i++ {
		h.Update([]track.Track{standing(1, 100, 100)}, t0.Add(time.Duration(i)*time.Second))
	}
	h.RenderOverlay(frame)

	warm := frame.RGBAAt(100, 100)
	if warm.A == 0 && warm.R == 0 && warm.B == 0 {
		t.Errorf("hot cell produced no overlay color")
	}
}
