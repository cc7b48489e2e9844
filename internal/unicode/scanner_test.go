package unicode

import (
	"strings"
	"testing"
)

func TestScan_Clean(t *testing.T) {
	for _, in := range []string{"", "plain ascii text", "tab\tand\nnewline\r\n", "caf\u00E9 na\u00EFve \uFFFD"} {
		if got := Scan(in); len(got) != 0 {
			t.Errorf("Scan(%q) = %+v, want no findings", in, got)
		}
		if got := Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestScan_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     Kind
		start    int
		end      int
		fold     string
		script   string
		describe string
	}{
		{"zero width space", "ls\u200B -la", KindInvisible, 2, 5, "", "", "U+200B"},
		{"byte order mark", "\uFEFFhello", KindInvisible, 0, 3, "", "", "U+FEFF"},
		{"soft hyphen", "pass\u00ADword", KindInvisible, 4, 6, "", "", "U+00AD"},
		{"right-to-left override", "file\u202Etxt.exe", KindBidi, 4, 7, "", "", "U+202E"},
		{"arabic letter mark", "a\u061Cb", KindBidi, 1, 3, "", "", "U+061C"},
		{"null byte", "ls\x00 -la", KindControl, 2, 3, "", "", "U+0000"},
		{"c1 control", "a\u0085b", KindControl, 1, 3, "", "", "U+0085"},
		{"cyrillic a", "p\u0430ypal", KindHomoglyph, 1, 3, "a", "Cyrillic", `Cyrillic U+0430 imitates Latin "a"`},
		{"cyrillic i in a host", "g\u0456thub.com", KindHomoglyph, 1, 3, "i", "Cyrillic", "U+0456"},
		{"greek omicron", "ech\u03BF", KindHomoglyph, 3, 5, "o", "Greek", "Greek"},
		{"invalid utf-8", "ok\xffok", KindInvalidUTF8, 2, 3, "", "", "1 byte(s) of invalid UTF-8"},
		{"tag run", "x\U000E0068\U000E0069y", KindTag, 1, 9, "", "", `"hi"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(tt.input)
			if len(got) != 1 {
				t.Fatalf("expected 1 finding, got %+v", got)
			}
			f := got[0]
			if f.Kind != tt.kind || f.Start != tt.start || f.End != tt.end {
				t.Errorf("finding = %s [%d,%d), want %s [%d,%d)", f.Kind, f.Start, f.End, tt.kind, tt.start, tt.end)
			}
			if f.Fold != tt.fold || f.Script != tt.script {
				t.Errorf("fold/script = %q/%q, want %q/%q", f.Fold, f.Script, tt.fold, tt.script)
			}
			if d := f.Describe(); !strings.Contains(d, tt.describe) {
				t.Errorf("Describe() = %q, want it to contain %q", d, tt.describe)
			}
		})
	}
}

func TestScan_MergesAdjacentRuns(t *testing.T) {
	in := "a\u200B\u200C\u200Db \u0440\u0430\u0443\u0440\u0430l"
	got := Scan(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 findings, got %+v", got)
	}
	if got[0].Kind != KindInvisible || got[0].Start != 1 || got[0].End != 10 {
		t.Errorf("unexpected invisible run: %+v", got[0])
	}
	if !strings.HasPrefix(got[0].Describe(), "3 invisible characters") {
		t.Errorf("Describe() = %q", got[0].Describe())
	}
	if got[1].Kind != KindHomoglyph || got[1].Fold != "paypa" {
		t.Errorf("unexpected homoglyph run: %+v", got[1])
	}
}

func TestScan_DifferentKindsStaySeparate(t *testing.T) {
	got := Scan("c\u0430t\u200B\u202E\u0391")
	want := []Kind{KindHomoglyph, KindInvisible, KindBidi, KindHomoglyph}
	if len(got) != len(want) {
		t.Fatalf("expected %d findings, got %+v", len(want), got)
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("finding %d kind = %s, want %s", i, got[i].Kind, k)
		}
	}
	if got[3].Script != "Greek" {
		t.Errorf("expected Greek alpha, got %+v", got[3])
	}
}

func TestHidden_OnlyForTags(t *testing.T) {
	f := Scan("\U000E0001\U000E0041\U000E0042\U000E007F")[0]
	if f.Hidden() != "AB" {
		t.Errorf("Hidden() = %q, want AB", f.Hidden())
	}
	if h := Scan("a\u200Bb")[0].Hidden(); h != "" {
		t.Errorf("Hidden() on invisible = %q, want empty", h)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"c\u0430t\u200B", "cat"},
		{"\uFEFFecho hello", "echo hello"},
		{"p\u0430yp\u0430l.com", "paypal.com"},
		{"say \U000E0068\U000E0069 now", "say  now"},
		{"a\x00b\x7fc", "abc"},
		{"\xc3\xff\xa9x", "x"},
		{"\u202Egnp.exe\u202C", "gnp.exe"},
	}
	for _, tt := range tests {
		got := Sanitize(tt.input)
		if got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := Scan(got); len(again) != 0 {
			t.Errorf("Sanitize(%q) left findings %+v", tt.input, again)
		}
	}
}
