package guard

import (
	"sort"
	"strings"
)

// ReplaceFunc returns the replacement text for a detected span.
type ReplaceFunc func(d Detection, original string) string

// Placeholder returns a ReplaceFunc that substitutes a fixed string.
func Placeholder(s string) ReplaceFunc {
	return func(Detection, string) string { return s }
}

// Stars replaces every rune of the span with '*'.
func Stars(_ Detection, original string) string {
	return strings.Repeat("*", len([]rune(original)))
}

// Remove deletes the span.
func Remove(Detection, string) string { return "" }

// MaskSpans rewrites every detected span in text using replace.
// Overlapping or adjacent-overlapping spans are merged and replaced once,
// using the first detection of the merged group. Spans outside text are
// ignored. With no usable spans text is returned unchanged.
func MaskSpans(text string, detections []Detection, replace ReplaceFunc) string {
	if len(detections) == 0 {
		return text
	}

	spans := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Start < 0 || d.End > len(text) || d.Start >= d.End {
			continue
		}
		spans = append(spans, d)
	}
	if len(spans) == 0 {
		return text
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	var sb strings.Builder
	sb.Grow(len(text))
	cursor := 0
	for i := 0; i < len(spans); {
		head := spans[i]
		end := head.End
		j := i + 1
		for j < len(spans) && spans[j].Start < end {
			if spans[j].End > end {
				end = spans[j].End
			}
			j++
		}
		sb.WriteString(text[cursor:head.Start])
		sb.WriteString(replace(head, text[head.Start:end]))
		cursor = end
		i = j
	}
	sb.WriteString(text[cursor:])
	return sb.String()
}
