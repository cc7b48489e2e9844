// Package unicode finds characters that make text read differently to a
// model than to a person: invisible formatting, direction overrides, tag
// characters, raw control codes and letters borrowed from other scripts.
package unicode

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the entity kind of a finding. The unicode guard reports it as the
// detection kind.
type Kind string

const (
	KindInvisible   Kind = "invisible"
	KindBidi        Kind = "bidi_control"
	KindTag         Kind = "tag_character"
	KindControl     Kind = "control_character"
	KindHomoglyph   Kind = "homoglyph"
	KindInvalidUTF8 Kind = "invalid_utf8"
)

// Kinds lists every kind Scan can report.
var Kinds = []Kind{KindInvisible, KindBidi, KindTag, KindControl, KindHomoglyph, KindInvalidUTF8}

// Finding is a run of adjacent suspicious characters of one kind.
type Finding struct {
	Kind  Kind
	Start int // byte offsets into the scanned text
	End   int
	// Fold is what Sanitize writes in place of the span: the Latin letters
	// for homoglyphs, nothing for everything else.
	Fold string
	// Script is "Cyrillic" or "Greek" for homoglyphs.
	Script string

	runes []rune
}

// Hidden decodes a run of tag characters to the ASCII text it spells.
// Other kinds hide nothing readable and return "".
func (f Finding) Hidden() string {
	if f.Kind != KindTag {
		return ""
	}
	var sb strings.Builder
	for _, r := range f.runes {
		if r >= 0xE0020 && r <= 0xE007E {
			sb.WriteRune(r - 0xE0000)
		}
	}
	return sb.String()
}

// Describe explains the finding without quoting the surrounding text.
func (f Finding) Describe() string {
	switch f.Kind {
	case KindInvisible:
		return fmt.Sprintf("%s hides content from a reader", plural(len(f.runes), "invisible character", codepoints(f.runes)))
	case KindBidi:
		return fmt.Sprintf("direction control %s reorders the displayed text", codepoints(f.runes))
	case KindTag:
		if h := f.Hidden(); h != "" {
			return fmt.Sprintf("tag characters spell hidden text %q", h)
		}
		return "tag characters carry hidden text"
	case KindControl:
		return fmt.Sprintf("%s in text", plural(len(f.runes), "control character", codepoints(f.runes)))
	case KindHomoglyph:
		return fmt.Sprintf("%s %s imitates Latin %q", f.Script, codepoints(f.runes), f.Fold)
	case KindInvalidUTF8:
		return fmt.Sprintf("%d byte(s) of invalid UTF-8", f.End-f.Start)
	}
	return string(f.Kind)
}

// Scan returns the findings in text in offset order. Adjacent characters of
// the same kind (and script) are merged into one finding.
func Scan(text string) []Finding {
	var out []Finding
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		var (
			kind   Kind
			fold   string
			script string
		)
		if r == utf8.RuneError && size == 1 {
			kind = KindInvalidUTF8
			r = rune(text[i])
		} else if kind, fold, script = classify(r); kind == "" {
			i += size
			continue
		}

		if n := len(out); n > 0 && out[n-1].End == i && out[n-1].Kind == kind && out[n-1].Script == script {
			last := &out[n-1]
			last.End += size
			last.Fold += fold
			last.runes = append(last.runes, r)
		} else {
			out = append(out, Finding{Kind: kind, Start: i, End: i + size, Fold: fold, Script: script, runes: []rune{r}})
		}
		i += size
	}
	return out
}

// Sanitize drops invisible, direction, tag, control and invalid bytes and
// folds homoglyphs to Latin. Text with no findings is returned as is.
func Sanitize(text string) string {
	findings := Scan(text)
	if len(findings) == 0 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	last := 0
	for _, f := range findings {
		sb.WriteString(text[last:f.Start])
		sb.WriteString(f.Fold)
		last = f.End
	}
	sb.WriteString(text[last:])
	return sb.String()
}

func classify(r rune) (kind Kind, fold, script string) {
	switch {
	case invisible[r]:
		return KindInvisible, "", ""
	case bidi[r]:
		return KindBidi, "", ""
	case r >= 0xE0000 && r <= 0xE007F:
		return KindTag, "", ""
	case isControl(r):
		return KindControl, "", ""
	}
	if latin, ok := lookalikes[r]; ok {
		script := "Greek"
		if unicode.Is(unicode.Cyrillic, r) {
			script = "Cyrillic"
		}
		return KindHomoglyph, string(latin), script
	}
	return "", "", ""
}

// isControl reports C0, DEL and C1 codes other than tab, newline and
// carriage return.
func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return r <= 0x1F || (r >= 0x7F && r <= 0x9F)
}

func codepoints(rs []rune) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("U+%04X", r)
	}
	return strings.Join(parts, " ")
}

func plural(n int, noun, detail string) string {
	if n == 1 {
		return fmt.Sprintf("%s %s", noun, detail)
	}
	return fmt.Sprintf("%d %ss (%s)", n, noun, detail)
}

var invisible = map[rune]bool{
	'\u00AD': true, // soft hyphen
	'\u180E': true, // Mongolian vowel separator
	'\u200B': true, // zero width space
	'\u200C': true, // zero width non-joiner
	'\u200D': true, // zero width joiner
	'\u200E': true, // left-to-right mark
	'\u200F': true, // right-to-left mark
	'\u2060': true, // word joiner
	'\u2061': true, // function application
	'\u2062': true, // invisible times
	'\u2063': true, // invisible separator
	'\u2064': true, // invisible plus
	'\uFEFF': true, // byte order mark
}

var bidi = map[rune]bool{
	'\u061C': true, // Arabic letter mark
	'\u202A': true, '\u202B': true, '\u202C': true, '\u202D': true, '\u202E': true, // embeddings and overrides
	'\u2066': true, '\u2067': true, '\u2068': true, '\u2069': true, // isolates
}

// lookalikes maps Cyrillic and Greek letters to the Latin letter they are
// mistaken for.
var lookalikes = map[rune]rune{
	// Cyrillic
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C', 'ԁ': 'd', 'е': 'e',
	'Е': 'E', 'һ': 'h', 'Н': 'H', 'і': 'i', 'І': 'I', 'ј': 'j', 'Ј': 'J',
	'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O', 'р': 'p', 'Р': 'P', 'ѕ': 's',
	'Ѕ': 'S', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
	// Greek
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K', 'Μ': 'M',
	'Ν': 'N', 'Ο': 'O', 'ο': 'o', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y',
	'Ζ': 'Z', 'ν': 'v',
}
