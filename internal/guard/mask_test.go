package guard

import (
	"testing"
)

func TestMaskSpans_EmptyDetectionsIsIdentity(t *testing.T) {
	inputs := []string{"", "hello", "email me at a@b.com", "ünïcödé ✓"}
	for _, in := range inputs {
		if got := MaskSpans(in, nil, Placeholder("[X]")); got != in {
			t.Errorf("MaskSpans(%q, nil) = %q, want unchanged", in, got)
		}
	}
}

func TestMaskSpans(t *testing.T) {
	tests := []struct {
		name string
		text string
		dets []Detection
		repl ReplaceFunc
		want string
	}{
		{
			name: "single span",
			text: "email me at a@b.com",
			dets: []Detection{{Start: 12, End: 19}},
			repl: Placeholder("[EMAIL MASKED]"),
			want: "email me at [EMAIL MASKED]",
		},
		{
			name: "unsorted spans",
			text: "aa bb cc",
			dets: []Detection{{Start: 6, End: 8}, {Start: 0, End: 2}},
			repl: Placeholder("X"),
			want: "X bb X",
		},
		{
			name: "overlapping spans merge",
			text: "0123456789",
			dets: []Detection{{Start: 2, End: 5}, {Start: 4, End: 8}},
			repl: Placeholder("#"),
			want: "01#89",
		},
		{
			name: "out of range span ignored",
			text: "short",
			dets: []Detection{{Start: 3, End: 50}},
			repl: Placeholder("#"),
			want: "short",
		},
		{
			name: "stars keep rune count",
			text: "this is crap.",
			dets: []Detection{{Start: 8, End: 12}},
			repl: Stars,
			want: "this is ****.",
		},
		{
			name: "remove",
			text: "a<script>b",
			dets: []Detection{{Start: 1, End: 9}},
			repl: Remove,
			want: "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskSpans(tt.text, tt.dets, tt.repl); got != tt.want {
				t.Errorf("MaskSpans() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeverityRank(t *testing.T) {
	if !(SeverityCritical.Rank() > SeverityHigh.Rank() &&
		SeverityHigh.Rank() > SeverityMedium.Rank() &&
		SeverityMedium.Rank() > SeverityLow.Rank()) {
		t.Error("severity ranks are not strictly ordered")
	}
	if Severity("bogus").Valid() {
		t.Error("unknown severity should not be valid")
	}
}

type plainGuard struct{}

func (plainGuard) ID() string                                  { return "plain" }
func (plainGuard) Check(string) ([]Detection, error)           { return nil, nil }
func (plainGuard) Mask(t string, _ []Detection) (string, error) { return t, nil }

type explainingGuard struct{ plainGuard }

func (explainingGuard) Explain(d Detection) string { return "explained " + d.Kind }

func TestExplain(t *testing.T) {
	d := Detection{Kind: "email", Explanation: "raw"}
	if got := Explain(explainingGuard{}, d); got != "explained email" {
		t.Errorf("Explain() with Explainer = %q", got)
	}
	if got := Explain(plainGuard{}, d); got != "raw" {
		t.Errorf("Explain() without Explainer = %q, want detection explanation", got)
	}
}
