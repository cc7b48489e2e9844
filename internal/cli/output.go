package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/slkreddy/SafeLayer/internal/audit"
	"github.com/slkreddy/SafeLayer/internal/manager"
)

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	magenta = color.New(color.FgMagenta)
	cyan    = color.New(color.FgCyan)
	faint   = color.New(color.Faint)
)

const rule = "═══════════════════════════════════════════════════════"

func actionColor(action string) *color.Color {
	switch action {
	case audit.ActionBlocked:
		return red
	case audit.ActionMasked:
		return yellow
	case audit.ActionWarned:
		return magenta
	default:
		return green
	}
}

func statusColor(s manager.Status) *color.Color {
	switch s {
	case manager.StatusCompleted:
		return green
	case manager.StatusBlocked:
		return red
	default:
		return yellow
	}
}

func printRunSummary(w io.Writer, res *manager.RunResult) {
	for _, o := range res.Outcomes {
		c := actionColor(o.Action)
		if o.Fault != "" {
			c = red
		}
		c.Fprintf(w, "  %-8s", o.Action)
		fmt.Fprintf(w, " %-10s %d detection(s)", o.GuardID, len(o.Detections))
		if kinds := outcomeKinds(o); kinds != "" {
			fmt.Fprintf(w, " [%s]", kinds)
		}
		if o.Fault != "" {
			red.Fprintf(w, " fault=%s", o.Fault)
		}
		fmt.Fprintln(w)
	}
	statusColor(res.Status).Fprintf(w, "%s", strings.ToUpper(string(res.Status)))
	faint.Fprintf(w, "  run %s  %s\n", res.RunID, res.Duration.Round(time.Microsecond))
}

func outcomeKinds(o manager.GuardOutcome) string {
	seen := map[string]bool{}
	var kinds []string
	for _, d := range o.Detections {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			kinds = append(kinds, d.Kind)
		}
	}
	return strings.Join(kinds, ", ")
}

func formatTimestamp(ts time.Time) string {
	return ts.Local().Format("2006-01-02 15:04:05")
}
