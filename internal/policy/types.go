package policy

import (
	"errors"
	"maps"
)

// Mode controls what a guard fault does to the run.
type Mode string

const (
	// ModeFailFast aborts the run on the guard's first fault.
	ModeFailFast Mode = "fail_fast"
	// ModeWarnContinue records the fault and keeps processing.
	ModeWarnContinue Mode = "warn_continue"
)

// Valid reports whether m is a known mode. The empty mode is valid and
// means "inherit".
func (m Mode) Valid() bool {
	return m == "" || m == ModeFailFast || m == ModeWarnContinue
}

// Action is the content decision applied when a guard reports detections.
type Action string

const (
	ActionBlock Action = "block"
	ActionMask  Action = "mask"
	ActionWarn  Action = "warn"
)

// Valid reports whether a is a known action. The empty action is valid and
// resolves to ActionMask.
func (a Action) Valid() bool {
	return a == "" || a == ActionBlock || a == ActionMask || a == ActionWarn
}

// ErrMissing is reported when a guard has no policy entry. It is never
// fatal: the guard runs with the safe default.
var ErrMissing = errors.New("no policy entry for guard")

// GuardPolicy is the resolved configuration for one guard.
type GuardPolicy struct {
	Enabled   *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Mode      Mode           `yaml:"mode,omitempty" json:"mode,omitempty"`
	Action    Action         `yaml:"action,omitempty" json:"action,omitempty"`
	Threshold float64        `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Options   map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// IsEnabled treats an unset Enabled as true.
func (g GuardPolicy) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// Defaults apply to every guard that leaves the field unset.
type Defaults struct {
	Mode Mode `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Policy is a read-only snapshot of per-guard configuration for one run.
type Policy struct {
	Name        string                 `yaml:"name" json:"name"`
	Version     string                 `yaml:"version" json:"version"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Parent      string                 `yaml:"parent,omitempty" json:"parent,omitempty"`
	Defaults    Defaults               `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Guards      map[string]GuardPolicy `yaml:"guards" json:"guards"`
	Metadata    map[string]string      `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Lookup returns the entry for guardID and whether one exists.
// A nil policy has no entries.
func (p *Policy) Lookup(guardID string) (GuardPolicy, bool) {
	if p == nil {
		return GuardPolicy{}, false
	}
	gp, ok := p.Guards[guardID]
	return gp, ok
}

// Resolve returns the effective configuration for guardID. Absent entries
// resolve to enabled with ActionMask. Mode falls back to the policy
// defaults; it stays empty when neither is set so the caller can apply its
// own default.
func (p *Policy) Resolve(guardID string) GuardPolicy {
	gp, _ := p.Lookup(guardID)
	if gp.Action == "" {
		gp.Action = ActionMask
	}
	if gp.Mode == "" && p != nil {
		gp.Mode = p.Defaults.Mode
	}
	return gp
}

// Clone returns a deep copy of p.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := *p
	c.Guards = make(map[string]GuardPolicy, len(p.Guards))
	for id, gp := range p.Guards {
		if gp.Enabled != nil {
			v := *gp.Enabled
			gp.Enabled = &v
		}
		gp.Options = maps.Clone(gp.Options)
		c.Guards[id] = gp
	}
	c.Metadata = maps.Clone(p.Metadata)
	return &c
}

// Bool is a helper for building GuardPolicy literals.
func Bool(v bool) *bool { return &v }
