// Package rules loads persona rule files. The decision engine consumes the
// parsed, ordered rule set and never touches the file format itself;
// malformed rules are rejected here, at load time.
package rules

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edgesight/go-signage/pkg/decision"
	"github.com/edgesight/go-signage/pkg/persona"
)

var (
	// ErrNoRules is returned when the file contains no rules at all.
	ErrNoRules = errors.New("rule file contains no rules")

	// ErrInvalidRule is returned when a rule is missing its name or its
	// output reference.
	ErrInvalidRule = errors.New("invalid rule")
)

// Global holds file-level tuning shared by several components.
type Global struct {
	CooldownSeconds     int     `yaml:"cooldown_seconds"`
	GracePeriodSeconds  int     `yaml:"grace_period_seconds"`
	MinPersonConfidence float64 `yaml:"min_person_conf"`
	MinFaceConfidence   float64 `yaml:"min_face_conf"`
}

// Guardrails holds hard suppression policy.
type Guardrails struct {
	// IgnoreChildren suppresses output for minors-only scenes.
	// Defaults to true when omitted.
	IgnoreChildren *bool `yaml:"ignore_children"`
}

// File is a parsed persona rule file.
type File struct {
	Global     Global          `yaml:"global"`
	Guardrails Guardrails      `yaml:"guardrails"`
	Rules      []decision.Rule `yaml:"rules"`
}

// Load reads and validates a rule file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return Parse(raw)
}

// Parse validates raw YAML rule content.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	if len(f.Rules) == 0 {
		return nil, ErrNoRules
	}
	for i, r := range f.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: rule %d has no name", ErrInvalidRule, i)
		}
		if r.Show == "" {
			return nil, fmt.Errorf("%w: rule %q has no output reference", ErrInvalidRule, r.Name)
		}
	}
	return &f, nil
}

// EngineConfig derives the decision engine policy from the file, falling
// back to engine defaults for omitted values.
func (f *File) EngineConfig() decision.Config {
	cfg := decision.DefaultConfig()
	if f.Global.CooldownSeconds > 0 {
		cfg.Cooldown = time.Duration(f.Global.CooldownSeconds) * time.Second
	}
	if f.Global.GracePeriodSeconds > 0 {
		cfg.GracePeriod = time.Duration(f.Global.GracePeriodSeconds) * time.Second
	}
	if f.Guardrails.IgnoreChildren != nil {
		cfg.GuardMinorsOnly = *f.Guardrails.IgnoreChildren
	}
	return cfg
}

// FusionConfig derives fusion thresholds from the file.
func (f *File) FusionConfig() persona.Config {
	cfg := persona.DefaultConfig()
	if f.Global.MinFaceConfidence > 0 {
		cfg.ConfidenceFloor = f.Global.MinFaceConfidence
	}
	return cfg
}

// MinPersonScore returns the detection score floor, defaulting when omitted.
func (f *File) MinPersonScore() float64 {
	if f.Global.MinPersonConfidence > 0 {
		return f.Global.MinPersonConfidence
	}
	return 0.5
}
