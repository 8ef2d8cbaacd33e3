package decision

import (
	"testing"
	"time"

	"github.com/edgesight/go-signage/pkg/persona"
)

var baseTime = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC) // evening

func adult(id int64, gender persona.Gender, emotion persona.Emotion) persona.Person {
	return persona.Person{
		TrackID:  id,
		Category: persona.Category{Age: persona.AgeAdult, Gender: gender, Emotion: emotion},
	}
}

func minor(id int64) persona.Person {
	return persona.Person{
		TrackID:  id,
		Category: persona.Category{Age: persona.AgeChild, Gender: persona.GenderUnknown, Emotion: persona.EmotionUnknown},
	}
}

func sceneAt(ts time.Time, persons ...persona.Person) persona.Context {
	return persona.Context{
		CameraID:    "cam1",
		Timestamp:   ts,
		TimeOfDay:   persona.TimeOfDay(ts),
		PeopleCount: len(persons),
		Persons:     persons,
	}
}

func testRules() []Rule {
	return []Rule{
		{
			Name: "kids-snack",
			When: Condition{AgeGroupAnyOf: []string{"child"}},
			Show: "ads/snack.mp4",
		},
		{
			Name: "evening-adult-male",
			When: Condition{
				TimeOfDayAnyOf: []string{"evening"},
				AgeGroupAnyOf:  []string{"adult", "senior"},
				GenderAnyOf:    []string{"male"},
			},
			Show: "ads/a.mp4",
		},
		{
			Name: "crowd",
			When: Condition{PeopleCount: ">=2"},
			Show: "ads/crowd.mp4",
		},
	}
}

func TestEngine_FirstMatchWins(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRules())

	ctx := sceneAt(baseTime, adult(1, persona.GenderMale, persona.EmotionNeutral))
	d := e.Choose(ctx)
	if d.Creative != "ads/a.mp4" {
		t.Errorf("got creative %q, want ads/a.mp4", d.Creative)
	}
	if d.Reason != "matched:evening-adult-male" {
		t.Errorf("got reason %q, want matched:evening-adult-male", d.Reason)
	}
}

func TestEngine_CooldownBlocksRepeat(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg, testRules())

	ctx := sceneAt(baseTime, adult(1, persona.GenderMale, persona.EmotionNeutral))
	if d := e.Choose(ctx); d.None() {
		t.Fatalf("setup: expected a match, got %q", d.Reason)
	}

	// Identical context within the cooldown window: the matched rule is
	// treated as non-matching and nothing else fires.
	within := sceneAt(baseTime.Add(10*time.Second), adult(1, persona.GenderMale, persona.EmotionNeutral))
	d := e.Choose(within)
	if !d.None() || d.Reason != ReasonNoMatch {
		t.Errorf("within cooldown: got (%q, %q), want no_match sentinel", d.Creative, d.Reason)
	}

	// At exactly T+cooldown the creative becomes eligible again.
	at := sceneAt(baseTime.Add(cfg.Cooldown), adult(1, persona.GenderMale, persona.EmotionNeutral))
	d = e.Choose(at)
	if d.Creative != "ads/a.mp4" {
		t.Errorf("at cooldown expiry: got (%q, %q), want ads/a.mp4", d.Creative, d.Reason)
	}
}

func TestEngine_CooldownIsPerIdentity(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRules())

	e.Choose(sceneAt(baseTime, adult(1, persona.GenderMale, persona.EmotionNeutral)))

	// A different identity with the same persona is immediately eligible.
	d := e.Choose(sceneAt(baseTime.Add(5*time.Second), adult(2, persona.GenderMale, persona.EmotionNeutral)))
	if d.Creative != "ads/a.mp4" {
		t.Errorf("new identity: got (%q, %q), want ads/a.mp4", d.Creative, d.Reason)
	}

	// A scene containing a fresh identity alongside the cooling one is
	// eligible too: cooldown is per identity, not global.
	d = e.Choose(sceneAt(baseTime.Add(10*time.Second),
		adult(1, persona.GenderMale, persona.EmotionNeutral),
		adult(3, persona.GenderMale, persona.EmotionNeutral)))
	if d.Creative != "ads/a.mp4" {
		t.Errorf("mixed scene: got (%q, %q), want ads/a.mp4", d.Creative, d.Reason)
	}
}

func TestEngine_CooldownFallsThroughToLaterRule(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRules())

	two := []persona.Person{
		adult(1, persona.GenderMale, persona.EmotionNeutral),
		adult(2, persona.GenderMale, persona.EmotionNeutral),
	}

	// First frame matches the male rule for both identities.
	d := e.Choose(sceneAt(baseTime, two...))
	if d.Creative != "ads/a.mp4" {
		t.Fatalf("setup: got %q, want ads/a.mp4", d.Creative)
	}

	// Same pair again: the male rule is cooling for everyone, so scanning
	// continues and the crowd rule fires instead.
	d = e.Choose(sceneAt(baseTime.Add(5*time.Second), two...))
	if d.Creative != "ads/crowd.mp4" {
		t.Errorf("got (%q, %q), want ads/crowd.mp4", d.Creative, d.Reason)
	}
}

func TestEngine_GuardrailSuppresssMinorsOnly(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRules())

	// Two minors: the crowd rule would match on count alone, but the
	// guardrail overrides rule order entirely.
	d := e.Choose(sceneAt(baseTime, minor(1), minor(2)))
	if !d.None() || d.Reason != ReasonGuardrail {
		t.Errorf("got (%q, %q), want guardrail_suppressed sentinel", d.Creative, d.Reason)
	}

	// Unknown adult status counts as non-adult for the guardrail.
	unknown := persona.Person{TrackID: 3, Category: persona.Category{
		Age: persona.AgeUnknown, Gender: persona.GenderUnknown, Emotion: persona.EmotionUnknown,
	}}
	d = e.Choose(sceneAt(baseTime, minor(1), unknown))
	if d.Reason != ReasonGuardrail {
		t.Errorf("minor+unknown: got %q, want guardrail_suppressed", d.Reason)
	}

	// One known adult lifts the guardrail.
	d = e.Choose(sceneAt(baseTime, minor(1), adult(4, persona.GenderMale, persona.EmotionNeutral)))
	if d.Reason == ReasonGuardrail {
		t.Errorf("adult present: guardrail must not fire")
	}
}

func TestEngine_GuardrailDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GuardMinorsOnly = false
	e := NewEngine(cfg, testRules())

	d := e.Choose(sceneAt(baseTime, minor(1)))
	if d.Creative != "ads/snack.mp4" {
		t.Errorf("guardrail off: got (%q, %q), want ads/snack.mp4", d.Creative, d.Reason)
	}
}

func TestEngine_AdultsOnlyFlag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GuardMinorsOnly = false
	rules := []Rule{
		{Name: "gated", When: Condition{PeopleCount: ">=1"}, Show: "ads/gated.mp4", AdultsOnly: true},
		{Name: "open", When: Condition{PeopleCount: ">=1"}, Show: "ads/open.mp4"},
	}
	e := NewEngine(cfg, rules)

	d := e.Choose(sceneAt(baseTime, minor(1)))
	if d.Creative != "ads/open.mp4" {
		t.Errorf("minors only: got %q, want ads/open.mp4 (gated rule skipped)", d.Creative)
	}

	d = e.Choose(sceneAt(baseTime.Add(time.Minute), adult(2, persona.GenderFemale, persona.EmotionHappy)))
	if d.Creative != "ads/gated.mp4" {
		t.Errorf("adult present: got %q, want ads/gated.mp4", d.Creative)
	}
}

func TestEngine_NoMatch(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRules())

	// Empty scene: no rule conditions hold (all require personas or count>=2).
	d := e.Choose(sceneAt(baseTime))
	if !d.None() || d.Reason != ReasonNoMatch {
		t.Errorf("got (%q, %q), want no_match sentinel", d.Creative, d.Reason)
	}
}

func TestEngine_MalformedRuleIsSkipped(t *testing.T) {
	rules := []Rule{
		{Name: "broken", When: Condition{PeopleCount: "approximately two"}, Show: "ads/x.mp4"},
		{Name: "fallback", When: Condition{PeopleCount: ">=1"}, Show: "ads/y.mp4"},
	}
	e := NewEngine(DefaultConfig(), rules)

	d := e.Choose(sceneAt(baseTime, adult(1, persona.GenderMale, persona.EmotionNeutral)))
	if d.Creative != "ads/y.mp4" {
		t.Errorf("got (%q, %q), want ads/y.mp4 via fallback rule", d.Creative, d.Reason)
	}
}

func TestEngine_StatePruning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GracePeriod = time.Minute
	e := NewEngine(cfg, testRules())

	e.Choose(sceneAt(baseTime, adult(1, persona.GenderMale, persona.EmotionNeutral)))
	if e.StateSize() != 1 {
		t.Fatalf("got %d cooldown entries, want 1", e.StateSize())
	}

	// Identity 1 vanishes; a later frame beyond the grace period drops it.
	e.Choose(sceneAt(baseTime.Add(2*time.Minute), adult(2, persona.GenderFemale, persona.EmotionHappy)))
	if e.StateSize() != 0 {
		t.Errorf("stale entries not pruned: %d remain", e.StateSize())
	}
}

func TestEngine_Determinism(t *testing.T) {
	scenes := []persona.Context{
		sceneAt(baseTime, adult(1, persona.GenderMale, persona.EmotionNeutral)),
		sceneAt(baseTime.Add(5*time.Second), adult(1, persona.GenderMale, persona.EmotionNeutral)),
		sceneAt(baseTime.Add(20*time.Second), minor(2), minor(3)),
		sceneAt(baseTime.Add(50*time.Second), adult(1, persona.GenderMale, persona.EmotionNeutral)),
		sceneAt(baseTime.Add(60*time.Second)),
	}

	run := func() []Decision {
		e := NewEngine(DefaultConfig(), testRules())
		out := make([]Decision, len(scenes))
		for i, s := range scenes {
			out[i] = e.Choose(s)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("frame %d: run A %+v, run B %+v", i, a[i], b[i])
		}
	}
}
