// Package decision selects a creative (or explicitly nothing) from a persona
// context by evaluating an ordered rule set with cooldown and guardrail policy.
package decision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgesight/go-signage/pkg/persona"
)

// Condition is a pure predicate over a persona context. Predicates that
// require a persona dimension never match when that dimension is unknown.
type Condition struct {
	// PeopleCount is a comparison expression: ">=N", "==N" or "<=N".
	// Empty means any count.
	PeopleCount string `yaml:"people_count,omitempty"`

	TimeOfDayAnyOf []string `yaml:"time_of_day_any_of,omitempty"`
	AgeGroupAnyOf  []string `yaml:"age_group_any_of,omitempty"`
	GenderAnyOf    []string `yaml:"gender_any_of,omitempty"`
	EmotionAnyOf   []string `yaml:"emotion_any_of,omitempty"`
}

// Rule is one ordered entry of the rule set: a condition, the creative to
// show, and rule-specific policy flags. Rules are consumed already parsed
// and are never reordered; position is priority.
type Rule struct {
	Name string    `yaml:"name"`
	When Condition `yaml:"when"`
	Show string    `yaml:"show"`

	// AdultsOnly skips this rule unless at least one persona in the
	// context is positively categorized as an adult.
	AdultsOnly bool `yaml:"adults_only,omitempty"`
}

// Match evaluates the condition against a context and its dominant persona.
// It is a pure read: no state is touched. A malformed expression returns an
// error, which the engine treats as non-match for this rule only.
func (c Condition) Match(ctx persona.Context, dom *persona.Person) (bool, error) {
	if c.PeopleCount != "" {
		ok, err := matchCount(c.PeopleCount, ctx.PeopleCount)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if len(c.TimeOfDayAnyOf) > 0 && !containsString(c.TimeOfDayAnyOf, ctx.TimeOfDay) {
		return false, nil
	}

	// Persona-dimension predicates require a dominant persona with that
	// dimension known; unknown is non-matching, never a wildcard.
	if len(c.AgeGroupAnyOf) > 0 {
		if dom == nil || dom.Category.Age == persona.AgeUnknown ||
			!containsString(c.AgeGroupAnyOf, string(dom.Category.Age)) {
			return false, nil
		}
	}
	if len(c.GenderAnyOf) > 0 {
		if dom == nil || dom.Category.Gender == persona.GenderUnknown ||
			!containsString(c.GenderAnyOf, string(dom.Category.Gender)) {
			return false, nil
		}
	}
	if len(c.EmotionAnyOf) > 0 {
		if dom == nil || dom.Category.Emotion == persona.EmotionUnknown ||
			!containsString(c.EmotionAnyOf, string(dom.Category.Emotion)) {
			return false, nil
		}
	}

	return true, nil
}

// matchCount evaluates a people-count expression against a count.
func matchCount(expr string, count int) (bool, error) {
	var op string
	switch {
	case strings.HasPrefix(expr, ">="), strings.HasPrefix(expr, "=="), strings.HasPrefix(expr, "<="):
		op = expr[:2]
	default:
		return false, fmt.Errorf("bad people_count expression %q", expr)
	}

	n, err := strconv.Atoi(strings.TrimSpace(expr[2:]))
	if err != nil {
		return false, fmt.Errorf("bad people_count expression %q: %w", expr, err)
	}

	switch op {
	case ">=":
		return count >= n, nil
	case "==":
		return count == n, nil
	default: // "<="
		return count <= n, nil
	}
}

// Dominant returns the persona the rule dimensions are evaluated against:
// the first positively-adult persona, falling back to the first persona.
// Returns nil for an empty scene.
func Dominant(ctx persona.Context) *persona.Person {
	for i := range ctx.Persons {
		if ctx.Persons[i].Category.KnownAdult() {
			return &ctx.Persons[i]
		}
	}
	if len(ctx.Persons) > 0 {
		return &ctx.Persons[0]
	}
	return nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
