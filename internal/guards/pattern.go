package guards

import (
	"regexp"
	"sort"

	"github.com/slkreddy/SafeLayer/internal/guard"
)

// rule is one positioned pattern a patternGuard looks for.
type rule struct {
	kind       string
	re         *regexp.Regexp
	severity   guard.Severity
	confidence float64
	reason     string
}

// patternGuard reports every match of its rules and masks each span with
// replace. Most built-in guards are a patternGuard with a different rule
// table.
type patternGuard struct {
	id      string
	rules   []rule
	replace guard.ReplaceFunc
}

func (g *patternGuard) ID() string { return g.id }

func (g *patternGuard) Check(text string) ([]guard.Detection, error) {
	var out []guard.Detection
	for _, r := range g.rules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			out = append(out, guard.Detection{
				GuardID:     g.id,
				Kind:        r.kind,
				Start:       loc[0],
				End:         loc[1],
				Severity:    r.severity,
				Confidence:  r.confidence,
				Explanation: r.reason,
			})
		}
	}
	sortDetections(out)
	return out, nil
}

func (g *patternGuard) Mask(text string, detections []guard.Detection) (string, error) {
	return guard.MaskSpans(text, detections, g.replace), nil
}

// sortDetections orders by start offset, longer spans first on ties.
func sortDetections(ds []guard.Detection) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Start != ds[j].Start {
			return ds[i].Start < ds[j].Start
		}
		return ds[i].End > ds[j].End
	})
}

// byKind picks the replacement by detection kind, falling back to def.
func byKind(m map[string]string, def string) guard.ReplaceFunc {
	return func(d guard.Detection, _ string) string {
		if s, ok := m[d.Kind]; ok {
			return s
		}
		return def
	}
}
