package track

import "sort"

// Detection is a single-frame observation from the detection backend.
// Detections carry no identity; the tracker assigns one.
type Detection struct {
	Box   Box
	Score float64 // Detector confidence (0-1)
}

// Track is a persistent identity across frames.
type Track struct {
	ID     int64 // Unique for the process lifetime, never reused
	Box    Box   // Last matched detection box
	Age    int   // Frames since the track was created
	Misses int   // Consecutive frames without a matching detection
}

// Config holds tunable tracker parameters.
type Config struct {
	IoUThreshold float64 // Minimum overlap to accept a match
	MaxMissed    int     // Evict a track after this many consecutive misses
}

// DefaultConfig returns the recommended configuration for retail-floor tracking.
func DefaultConfig() Config {
	return Config{
		IoUThreshold: 0.4,
		MaxMissed:    30, // ~3 seconds at 10 fps
	}
}

// Tracker maintains the live track table. It is the single writer of its
// own state; callers must not invoke Update concurrently.
type Tracker struct {
	cfg    Config
	tracks []*Track // Ordered by ID (ascending, since IDs are monotonic)
	nextID int64
}

// New creates a tracker with the given configuration.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, nextID: 1}
}

// candidate is a (track, detection) pair under consideration for matching.
type candidate struct {
	trackIdx int
	detIdx   int
	iou      float64
}

// Update consumes one frame's detections and returns the tracks for this
// frame: matched tracks first in detection order, then tracks newly created
// for unmatched detections, also in detection order. The output length
// always equals len(detections), so downstream per-position alignment holds.
func (t *Tracker) Update(detections []Detection) []Track {
	// Score every live (track, detection) pair above the threshold.
	var cands []candidate
	for ti, tr := range t.tracks {
		for di, det := range detections {
			if v := IoU(tr.Box, det.Box); v >= t.cfg.IoUThreshold {
				cands = append(cands, candidate{trackIdx: ti, detIdx: di, iou: v})
			}
		}
	}

	// Greedy: best overlap first. Ties prefer the older (lower) track ID,
	// then the earlier detection index, so runs are reproducible.
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].iou != cands[j].iou {
			return cands[i].iou > cands[j].iou
		}
		if t.tracks[cands[i].trackIdx].ID != t.tracks[cands[j].trackIdx].ID {
			return t.tracks[cands[i].trackIdx].ID < t.tracks[cands[j].trackIdx].ID
		}
		return cands[i].detIdx < cands[j].detIdx
	})

	matchedTrack := make(map[int]bool) // track index -> matched
	detToTrack := make(map[int]*Track) // detection index -> matched track
	for _, c := range cands {
		if matchedTrack[c.trackIdx] || detToTrack[c.detIdx] != nil {
			continue
		}
		matchedTrack[c.trackIdx] = true
		detToTrack[c.detIdx] = t.tracks[c.trackIdx]
	}

	// Mutate matched tracks, age everything, count misses.
	for di, tr := range detToTrack {
		tr.Box = detections[di].Box
		tr.Misses = 0
	}
	survivors := t.tracks[:0]
	for ti, tr := range t.tracks {
		tr.Age++
		if !matchedTrack[ti] {
			tr.Misses++
			if tr.Misses > t.cfg.MaxMissed {
				continue // evicted; the ID is never reused
			}
		}
		survivors = append(survivors, tr)
	}
	t.tracks = survivors

	// Spawn new tracks for unmatched detections, in detection order.
	var created []*Track
	for di, det := range detections {
		if detToTrack[di] != nil {
			continue
		}
		tr := &Track{ID: t.nextID, Box: det.Box}
		t.nextID++
		t.tracks = append(t.tracks, tr)
		created = append(created, tr)
	}

	// Output: matched in detection order, then created in detection order.
	out := make([]Track, 0, len(detections))
	for di := range detections {
		if tr := detToTrack[di]; tr != nil {
			out = append(out, *tr)
		}
	}
	for _, tr := range created {
		out = append(out, *tr)
	}
	return out
}

// Live returns a snapshot of all live tracks, including currently
// unmatched ones that have not yet been evicted.
func (t *Tracker) Live() []Track {
	out := make([]Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, *tr)
	}
	return out
}

// LiveCount returns the number of live tracks.
func (t *Tracker) LiveCount() int {
	return len(t.tracks)
}
