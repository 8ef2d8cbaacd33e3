// Package persona fuses tracked identities with per-identity attribute
// estimates and scene context into the record the decision engine consumes.
package persona

import (
	"time"

	"github.com/edgesight/go-signage/pkg/track"
)

// AgeGroup is a coarse age bracket derived from an estimated age.
type AgeGroup string

const (
	AgeUnknown AgeGroup = "unknown"
	AgeChild   AgeGroup = "child"
	AgeTeen    AgeGroup = "teen"
	AgeAdult   AgeGroup = "adult"
	AgeSenior  AgeGroup = "senior"
)

// Gender is an estimated gender label.
type Gender string

const (
	GenderUnknown Gender = "unknown"
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// Emotion is an estimated facial expression label.
type Emotion string

const (
	EmotionUnknown   Emotion = "unknown"
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
)

// Estimate is a raw per-identity attribute estimate from the attribute
// source. Fields the estimator could not produce are explicitly unknown
// (AgeYears < 0, GenderUnknown, EmotionUnknown) with zero confidence,
// never a guessed default.
type Estimate struct {
	HasFace     bool
	AgeYears    int // -1 when unknown
	AgeConf     float64
	Gender      Gender
	GenderConf  float64
	Emotion     Emotion
	EmotionConf float64
}

// Unknown returns an estimate with every field explicitly unknown.
// Attribute sources must degrade to this rather than omitting entries.
func Unknown() Estimate {
	return Estimate{
		AgeYears: -1,
		Gender:   GenderUnknown,
		Emotion:  EmotionUnknown,
	}
}

// Category is the derived persona categorization of one identity.
// Each dimension is independently unknown when the underlying estimate
// is missing or below the confidence floor.
type Category struct {
	Age     AgeGroup
	Gender  Gender
	Emotion Emotion
}

// KnownAdult reports whether this persona is positively categorized as an
// adult. Unknown age is NOT an adult: guardrails treat it as non-adult.
func (c Category) KnownAdult() bool {
	return c.Age == AgeAdult || c.Age == AgeSenior
}

// Label returns a compact human-readable category label, e.g. "adult_male".
func (c Category) Label() string {
	return string(c.Age) + "_" + string(c.Gender)
}

// Person is one tracked identity enriched with its raw estimate and the
// derived category, so callers needing either view share one pass.
type Person struct {
	TrackID  int64
	Box      track.Box
	Category Category
	Estimate Estimate
}

// Context is the scene-level persona context for one frame. It is rebuilt
// every frame and carries the frame timestamp so downstream policy
// (cooldowns, time-of-day predicates) is deterministic from inputs alone.
type Context struct {
	CameraID    string
	Seq         uint64
	Timestamp   time.Time
	TimeOfDay   string
	PeopleCount int
	Persons     []Person
}

// TimeOfDay buckets a timestamp into morning/afternoon/evening/night.
func TimeOfDay(t time.Time) string {
	h := t.Hour()
	switch {
	case h >= 6 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}
