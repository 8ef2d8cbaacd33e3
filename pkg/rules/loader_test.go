package rules

import (
	"errors"
	"testing"
	"time"
)

const sampleFile = `
global:
  cooldown_seconds: 60
  min_person_conf: 0.45
  min_face_conf: 0.6
guardrails:
  ignore_children: true
rules:
  - name: kids-snack
    when:
      age_group_any_of: [child]
    show: ads/snack.mp4
  - name: evening-adult-male
    when:
      time_of_day_any_of: [evening]
      age_group_any_of: [adult, senior]
      gender_any_of: [male]
    show: ads/a.mp4
    adults_only: true
  - name: crowd
    when:
      people_count: ">=2"
    show: ads/crowd.mp4
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(f.Rules))
	}

	// Order is priority and must survive parsing untouched.
	wantOrder := []string{"kids-snack", "evening-adult-male", "crowd"}
	for i, name := range wantOrder {
		if f.Rules[i].Name != name {
			t.Errorf("rule %d: got %q, want %q", i, f.Rules[i].Name, name)
		}
	}

	if !f.Rules[1].AdultsOnly {
		t.Errorf("adults_only flag not parsed")
	}
	if got := f.Rules[2].When.PeopleCount; got != ">=2" {
		t.Errorf("people_count: got %q, want >=2", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{
			name: "missing show",
			raw:  "rules:\n  - name: broken\n    when:\n      people_count: \">=1\"\n",
			want: ErrInvalidRule,
		},
		{
			name: "missing name",
			raw:  "rules:\n  - show: ads/x.mp4\n",
			want: ErrInvalidRule,
		},
		{
			name: "no rules",
			raw:  "global:\n  cooldown_seconds: 10\n",
			want: ErrNoRules,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			if !errors.Is(err, tc.want) {
				t.Errorf("got err %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := Parse([]byte("rules: [")); err == nil {
		t.Errorf("expected YAML syntax error")
	}
}

func TestDerivedConfigs(t *testing.T) {
	f, err := Parse([]byte(sampleFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ec := f.EngineConfig()
	if ec.Cooldown != 60*time.Second {
		t.Errorf("cooldown: got %v, want 60s", ec.Cooldown)
	}
	if !ec.GuardMinorsOnly {
		t.Errorf("guardrail should be on")
	}

	fc := f.FusionConfig()
	if fc.ConfidenceFloor != 0.6 {
		t.Errorf("confidence floor: got %v, want 0.6", fc.ConfidenceFloor)
	}

	if got := f.MinPersonScore(); got != 0.45 {
		t.Errorf("min person score: got %v, want 0.45", got)
	}
}

func TestDerivedConfigs_Defaults(t *testing.T) {
	f, err := Parse([]byte("rules:\n  - name: r\n    show: ads/x.mp4\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ec := f.EngineConfig()
	if ec.Cooldown != 45*time.Second {
		t.Errorf("default cooldown: got %v, want 45s", ec.Cooldown)
	}
	if !ec.GuardMinorsOnly {
		t.Errorf("guardrail must default to on when omitted")
	}
	if got := f.MinPersonScore(); got != 0.5 {
		t.Errorf("default min person score: got %v, want 0.5", got)
	}
}
