package persona

import (
	"errors"
	"fmt"
	"time"

	"github.com/edgesight/go-signage/pkg/track"
)

// ErrMisaligned is returned when the attribute list is not position-aligned
// with the tracked list. Silent truncation or padding would attach the wrong
// attributes to the wrong identities, so this fails hard.
var ErrMisaligned = errors.New("tracked and estimate lists are misaligned")

// FrameInfo is the scene-level input to fusion for one frame.
type FrameInfo struct {
	CameraID  string
	Seq       uint64
	Timestamp time.Time
}

// Config holds fusion thresholds.
type Config struct {
	ConfidenceFloor float64 // Below this, an attribute dimension is unknown
	ChildAgeMax     int     // Ages <= this are "child"
	TeenAgeMax      int     // Ages <= this (and > ChildAgeMax) are "teen"
	SeniorAgeMin    int     // Ages >= this are "senior"
}

// DefaultConfig returns the recommended fusion thresholds.
func DefaultConfig() Config {
	return Config{
		ConfidenceFloor: 0.5,
		ChildAgeMax:     12,
		TeenAgeMax:      17,
		SeniorAgeMin:    62,
	}
}

// Fuser builds persona contexts from tracked identities and their estimates.
type Fuser struct {
	cfg Config
}

// New creates a fuser with the given thresholds.
func New(cfg Config) *Fuser {
	return &Fuser{cfg: cfg}
}

// Fuse merges position-aligned tracked identities and attribute estimates
// with frame context into a persona context plus the enriched person list.
// len(tracked) != len(estimates) is a contract violation and returns
// ErrMisaligned; the frame produces no context.
func (f *Fuser) Fuse(frame FrameInfo, tracked []track.Track, estimates []Estimate) (Context, []Person, error) {
	if len(tracked) != len(estimates) {
		return Context{}, nil, fmt.Errorf("%w: %d tracked, %d estimates",
			ErrMisaligned, len(tracked), len(estimates))
	}

	persons := make([]Person, len(tracked))
	for i, tr := range tracked {
		persons[i] = Person{
			TrackID:  tr.ID,
			Box:      tr.Box,
			Category: f.categorize(estimates[i]),
			Estimate: estimates[i],
		}
	}

	ctx := Context{
		CameraID:    frame.CameraID,
		Seq:         frame.Seq,
		Timestamp:   frame.Timestamp,
		TimeOfDay:   TimeOfDay(frame.Timestamp),
		PeopleCount: len(tracked),
		Persons:     persons,
	}
	return ctx, persons, nil
}

// categorize derives the persona category for one estimate, marking each
// dimension unknown when it is missing or under the confidence floor.
func (f *Fuser) categorize(est Estimate) Category {
	cat := Category{Age: AgeUnknown, Gender: GenderUnknown, Emotion: EmotionUnknown}

	if est.AgeYears >= 0 && est.AgeConf >= f.cfg.ConfidenceFloor {
		switch {
		case est.AgeYears <= f.cfg.ChildAgeMax:
			cat.Age = AgeChild
		case est.AgeYears <= f.cfg.TeenAgeMax:
			cat.Age = AgeTeen
		case est.AgeYears >= f.cfg.SeniorAgeMin:
			cat.Age = AgeSenior
		default:
			cat.Age = AgeAdult
		}
	}

	if est.Gender != GenderUnknown && est.Gender != "" && est.GenderConf >= f.cfg.ConfidenceFloor {
		cat.Gender = est.Gender
	}

	if est.Emotion != EmotionUnknown && est.Emotion != "" && est.EmotionConf >= f.cfg.ConfidenceFloor {
		cat.Emotion = est.Emotion
	}

	return cat
}
