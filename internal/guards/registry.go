// Package guards ships the built-in guard variants and builds them by name.
package guards

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/policy"
)

// Factory builds a guard from the options of its policy entry.
type Factory func(opts map[string]any) (guard.Guard, error)

var factories = map[string]Factory{
	"secret":    func(map[string]any) (guard.Guard, error) { return NewSecret(), nil },
	"unicode":   func(map[string]any) (guard.Guard, error) { return NewUnicode(), nil },
	"injection": func(map[string]any) (guard.Guard, error) { return NewInjection(), nil },
	"email":     func(map[string]any) (guard.Guard, error) { return NewEmail(), nil },
	"phone":     func(map[string]any) (guard.Guard, error) { return NewPhone(), nil },
	"pii":       func(map[string]any) (guard.Guard, error) { return NewPII(), nil },
	"tone": func(opts map[string]any) (guard.Guard, error) {
		words, err := stringList(opts, "words")
		if err != nil {
			return nil, err
		}
		return NewTone(words), nil
	},
	"tts": func(map[string]any) (guard.Guard, error) { return NewTTS(), nil },
}

// DefaultOrder is the order built-in guards run in when the caller does not
// choose one. Guards that neutralise hidden content run before the ones
// that read it.
var DefaultOrder = []string{"secret", "unicode", "injection", "email", "phone", "pii", "tone", "tts"}

// Names returns the registered guard names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a built-in guard.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// New builds the named guard with opts.
func New(name string, opts map[string]any) (guard.Guard, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown guard %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	g, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("guard %q: %w", name, err)
	}
	return g, nil
}

// Build returns the named guards in the given order, configured from p.
func Build(names []string, p *policy.Policy) ([]guard.Guard, error) {
	out := make([]guard.Guard, 0, len(names))
	for _, name := range names {
		g, err := New(name, p.Resolve(name).Options)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// ForPolicy builds every built-in guard p has an entry for, in
// DefaultOrder. Entries naming no built-in guard are returned in unknown so
// the caller can report them.
func ForPolicy(p *policy.Policy) (gs []guard.Guard, unknown []string, err error) {
	var names []string
	for _, name := range DefaultOrder {
		if _, ok := p.Lookup(name); ok {
			names = append(names, name)
		}
	}
	if p != nil {
		for id := range p.Guards {
			if !Known(id) {
				unknown = append(unknown, id)
			}
		}
	}
	slices.Sort(unknown)
	gs, err = Build(names, p)
	return gs, unknown, err
}

func stringList(opts map[string]any, key string) ([]string, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %q: expected a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return strings.Split(t, ","), nil
	default:
		return nil, fmt.Errorf("option %q: expected a list of strings, got %T", key, v)
	}
}
