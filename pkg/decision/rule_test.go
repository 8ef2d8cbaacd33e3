package decision

import (
	"testing"
	"time"

	"github.com/edgesight/go-signage/pkg/persona"
)

func TestMatchCount(t *testing.T) {
	tests := []struct {
		expr    string
		count   int
		expect  bool
		wantErr bool
	}{
		{">=2", 2, true, false},
		{">=2", 1, false, false},
		{"==1", 1, true, false},
		{"==1", 0, false, false},
		{"<=3", 3, true, false},
		{"<=3", 4, false, false},
		{">= 2", 2, true, false}, // tolerate a space after the operator
		{"~2", 2, false, true},
		{">=two", 2, false, true},
		{"", 0, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := matchCount(tc.expr, tc.count)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.expr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expect {
				t.Errorf("matchCount(%q, %d): got %v, want %v", tc.expr, tc.count, got, tc.expect)
			}
		})
	}
}

func TestCondition_UnknownNeverMatches(t *testing.T) {
	ts := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	unknown := persona.Person{TrackID: 1, Category: persona.Category{
		Age: persona.AgeUnknown, Gender: persona.GenderUnknown, Emotion: persona.EmotionUnknown,
	}}
	ctx := sceneAt(ts, unknown)

	tests := []struct {
		name string
		cond Condition
	}{
		{"age required", Condition{AgeGroupAnyOf: []string{"adult"}}},
		{"gender required", Condition{GenderAnyOf: []string{"male", "female"}}},
		{"emotion required", Condition{EmotionAnyOf: []string{"happy"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := tc.cond.Match(ctx, Dominant(ctx))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Errorf("unknown dimension matched predicate %+v", tc.cond)
			}
		})
	}

	// Predicates that do not touch persona dimensions still match.
	ok, err := Condition{PeopleCount: "==1", TimeOfDayAnyOf: []string{"evening"}}.Match(ctx, Dominant(ctx))
	if err != nil || !ok {
		t.Errorf("scene-only condition: got (%v, %v), want match", ok, err)
	}
}

func TestCondition_NilDominant(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := sceneAt(ts) // empty scene

	ok, err := Condition{AgeGroupAnyOf: []string{"adult"}}.Match(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("persona predicate matched with no personas present")
	}

	ok, err = Condition{PeopleCount: "==0"}.Match(ctx, nil)
	if err != nil || !ok {
		t.Errorf("count-only condition on empty scene: got (%v, %v), want match", ok, err)
	}
}

func TestDominant(t *testing.T) {
	ts := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

	// First known adult wins even when a minor is first in order.
	ctx := sceneAt(ts, minor(1), adult(2, persona.GenderFemale, persona.EmotionHappy))
	if dom := Dominant(ctx); dom == nil || dom.TrackID != 2 {
		t.Errorf("got dominant %+v, want track 2", dom)
	}

	// Minors only: fall back to the first persona.
	ctx = sceneAt(ts, minor(3), minor(4))
	if dom := Dominant(ctx); dom == nil || dom.TrackID != 3 {
		t.Errorf("got dominant %+v, want track 3", dom)
	}

	// Empty scene has no dominant persona.
	if dom := Dominant(sceneAt(ts)); dom != nil {
		t.Errorf("got dominant %+v for empty scene, want nil", dom)
	}
}
