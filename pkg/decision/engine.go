package decision

import (
	"time"

	"github.com/edgesight/go-signage/internal/log"
	"github.com/edgesight/go-signage/pkg/persona"
)

// Reason codes for outcomes that select nothing. These are ordinary results,
// not errors: the renderer may log or display them and the pipeline moves on.
const (
	ReasonNoMatch    = "no_match"
	ReasonGuardrail  = "guardrail_suppressed"
	reasonMatchedFmt = "matched:"
)

// Decision is the per-frame output selection.
type Decision struct {
	Creative string // Output reference; empty means show nothing
	Reason   string // "matched:<rule>", "no_match" or "guardrail_suppressed"
}

// None reports whether the decision selects nothing.
func (d Decision) None() bool {
	return d.Creative == ""
}

// Config holds engine policy parameters.
type Config struct {
	// Cooldown is the minimum elapsed time before the same creative may be
	// re-selected for the same identity.
	Cooldown time.Duration

	// GracePeriod bounds engine memory: cooldown entries for identities not
	// seen for this long are dropped.
	GracePeriod time.Duration

	// GuardMinorsOnly suppresses selection entirely when every persona in
	// the scene is a minor or of unknown adult status.
	GuardMinorsOnly bool
}

// DefaultConfig returns the recommended engine policy.
func DefaultConfig() Config {
	return Config{
		Cooldown:        45 * time.Second,
		GracePeriod:     5 * time.Minute,
		GuardMinorsOnly: true,
	}
}

// cooldownKey scopes cooldown per (identity, creative) pair, so a new person
// entering the scene is immediately eligible for a creative that is still
// cooling for everyone else.
type cooldownKey struct {
	trackID  int64
	creative string
}

// Engine evaluates the ordered rule set and owns all cross-frame decision
// state (last-shown timestamps per identity/creative). It is the single
// writer of that state; Choose must not be called concurrently.
//
// All time arithmetic uses the frame timestamp carried in the persona
// context, never the wall clock, so identical input sequences produce
// identical decision sequences.
type Engine struct {
	cfg   Config
	rules []Rule

	lastShown map[cooldownKey]time.Time
	lastSeen  map[int64]time.Time
}

// NewEngine creates an engine over an already-parsed, ordered rule set.
func NewEngine(cfg Config, rules []Rule) *Engine {
	return &Engine{
		cfg:       cfg,
		rules:     rules,
		lastShown: make(map[cooldownKey]time.Time),
		lastSeen:  make(map[int64]time.Time),
	}
}

// Choose evaluates the rules against the context in input order and returns
// the first acceptable selection, or a no-selection sentinel with a reason.
// Cooldown state is committed exactly once, after a rule is accepted.
func (e *Engine) Choose(ctx persona.Context) Decision {
	now := ctx.Timestamp
	e.touch(ctx, now)
	e.prune(now)

	// Guardrail: a scene of only minors/unknown-adult personas selects
	// nothing, regardless of what any rule would match.
	if e.cfg.GuardMinorsOnly && len(ctx.Persons) > 0 && !hasKnownAdult(ctx) {
		return Decision{Reason: ReasonGuardrail}
	}

	dom := Dominant(ctx)

	for _, rule := range e.rules {
		if rule.AdultsOnly && !hasKnownAdult(ctx) {
			continue
		}

		matched, err := rule.When.Match(ctx, dom)
		if err != nil {
			// A malformed rule costs only itself, never the frame.
			log.Warn("rule evaluation failed", "rule", rule.Name, "err", err)
			continue
		}
		if !matched {
			continue
		}

		if !e.eligible(rule.Show, ctx, now) {
			continue
		}

		e.commit(rule.Show, ctx, now)
		return Decision{Creative: rule.Show, Reason: reasonMatchedFmt + rule.Name}
	}

	return Decision{Reason: ReasonNoMatch}
}

// eligible reports whether the creative may be shown: at least one identity
// in the context must be outside its cooldown window for it. An empty scene
// has nobody cooling, so it is always eligible.
func (e *Engine) eligible(creative string, ctx persona.Context, now time.Time) bool {
	if len(ctx.Persons) == 0 {
		return true
	}
	for _, p := range ctx.Persons {
		shown, ok := e.lastShown[cooldownKey{p.TrackID, creative}]
		if !ok || now.Sub(shown) >= e.cfg.Cooldown {
			return true
		}
	}
	return false
}

// commit records the selection against every identity present in the
// context. Timestamps only move forward.
func (e *Engine) commit(creative string, ctx persona.Context, now time.Time) {
	for _, p := range ctx.Persons {
		key := cooldownKey{p.TrackID, creative}
		if prev, ok := e.lastShown[key]; !ok || now.After(prev) {
			e.lastShown[key] = now
		}
	}
}

// touch refreshes last-seen times for identities present this frame.
func (e *Engine) touch(ctx persona.Context, now time.Time) {
	for _, p := range ctx.Persons {
		if prev, ok := e.lastSeen[p.TrackID]; !ok || now.After(prev) {
			e.lastSeen[p.TrackID] = now
		}
	}
}

// prune drops state for identities unseen beyond the grace period, bounding
// memory over a long-running session.
func (e *Engine) prune(now time.Time) {
	for id, seen := range e.lastSeen {
		if now.Sub(seen) <= e.cfg.GracePeriod {
			continue
		}
		delete(e.lastSeen, id)
		for key := range e.lastShown {
			if key.trackID == id {
				delete(e.lastShown, key)
			}
		}
	}
}

// StateSize returns the number of live cooldown entries, for metrics.
func (e *Engine) StateSize() int {
	return len(e.lastShown)
}

func hasKnownAdult(ctx persona.Context) bool {
	for _, p := range ctx.Persons {
		if p.Category.KnownAdult() {
			return true
		}
	}
	return false
}
