package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the name of the built-in policy. A policy file may name it
// as its parent.
const DefaultName = "default"

// Load reads a policy file and resolves its parent chain. A missing file
// yields DefaultPolicy.
func Load(path string) (*Policy, error) {
	p, err := load(path, map[string]bool{})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPolicy(), nil
		}
		return nil, err
	}
	return p, nil
}

func load(path string, seen map[string]bool) (*Policy, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[abs] {
		return nil, fmt.Errorf("policy inheritance cycle at %s", path)
	}
	seen[abs] = true

	p, err := Parse(path)
	if err != nil {
		return nil, err
	}

	if p.Parent == "" {
		return p, nil
	}

	var parent *Policy
	if p.Parent == DefaultName {
		parent = DefaultPolicy()
	} else {
		parentPath, err := findParent(filepath.Dir(path), p.Parent)
		if err != nil {
			return nil, err
		}
		parent, err = load(parentPath, seen)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent policy %q: %w", p.Parent, err)
		}
	}
	return Merge(parent, p), nil
}

// Parse reads a single policy file without resolving its parent. The
// format is chosen by extension: .yaml, .yml or .json.
func Parse(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Policy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".json":
		err = json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unsupported policy file format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy %s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if p.Version == "" {
		p.Version = "1.0.0"
	}
	if p.Guards == nil {
		p.Guards = map[string]GuardPolicy{}
	}
	return &p, nil
}

func findParent(dir, name string) (string, error) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		candidate := filepath.Join(dir, name+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("parent policy %q not found in %s", name, dir)
}

// Merge overlays child onto parent. Child guard entries replace the
// parent's entry for the same guard id as a whole.
func Merge(parent, child *Policy) *Policy {
	merged := child.Clone()
	merged.Guards = parent.Clone().Guards
	maps.Copy(merged.Guards, child.Clone().Guards)
	if merged.Defaults.Mode == "" {
		merged.Defaults.Mode = parent.Defaults.Mode
	}

	meta := maps.Clone(parent.Metadata)
	if meta == nil {
		meta = map[string]string{}
	}
	maps.Copy(meta, child.Metadata)
	meta["inherited_from"] = parent.Name
	merged.Metadata = meta
	return merged
}

// Save writes p as YAML.
func Save(p *Policy, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate returns every problem found in p joined into one error, or nil.
func Validate(p *Policy) error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("policy name is required"))
	}
	if p.Version == "" {
		errs = append(errs, errors.New("policy version is required"))
	}
	if !p.Defaults.Mode.Valid() {
		errs = append(errs, fmt.Errorf("defaults: unknown mode %q", p.Defaults.Mode))
	}
	for id, gp := range p.Guards {
		if !gp.Action.Valid() {
			errs = append(errs, fmt.Errorf("guard %q: unknown action %q", id, gp.Action))
		}
		if !gp.Mode.Valid() {
			errs = append(errs, fmt.Errorf("guard %q: unknown mode %q", id, gp.Mode))
		}
		if gp.Threshold < 0 || gp.Threshold > 1 {
			errs = append(errs, fmt.Errorf("guard %q: threshold must be between 0 and 1", id))
		}
	}
	return errors.Join(errs...)
}

// DefaultPolicy returns the built-in policy: PII is masked, tone is
// warned about, TTS hazards block.
func DefaultPolicy() *Policy {
	return &Policy{
		Name:        DefaultName,
		Version:     "1.0.0",
		Description: "Default SafeLayer policy set",
		Defaults:    Defaults{Mode: ModeWarnContinue},
		Guards: map[string]GuardPolicy{
			"pii":       {Action: ActionMask, Threshold: 0.9},
			"email":     {Action: ActionMask},
			"phone":     {Action: ActionMask},
			"secret":    {Action: ActionMask},
			"tone":      {Action: ActionWarn, Threshold: 0.7},
			"tts":       {Action: ActionBlock, Threshold: 0.8},
			"unicode":   {Action: ActionMask},
			"injection": {Action: ActionBlock, Threshold: 0.8},
		},
		Metadata: map[string]string{
			"created_by":     "safelayer",
			"auto_generated": "true",
		},
	}
}
