package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slkreddy/SafeLayer/internal/audit"
)

type logOptions struct {
	action  string
	guardID string
	runID   string
	faulted bool
	last    int
	summary bool
}

func newAuditLogCmd(g *globalFlags) *cobra.Command {
	o := &logOptions{}
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and filter the audit log",
		Long: `View the SafeLayer audit log with filtering and summary options.

Examples:
  safelayer audit log                       # Show all entries
  safelayer audit log --last 20             # Show last 20 entries
  safelayer audit log --action blocked      # Show only blocked decisions
  safelayer audit log --guard email         # Show one guard's decisions
  safelayer audit log --faulted             # Show only guard faults
  safelayer audit log --summary             # Show summary stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return logCommand(cmd, g, o)
		},
	}
	cmd.Flags().StringVar(&o.action, "action", "", "Filter by action (none, masked, warned, blocked)")
	cmd.Flags().StringVar(&o.guardID, "guard", "", "Filter by guard id")
	cmd.Flags().StringVar(&o.runID, "run", "", "Filter by run id")
	cmd.Flags().BoolVar(&o.faulted, "faulted", false, "Show only entries recording a guard fault")
	cmd.Flags().IntVar(&o.last, "last", 0, "Show last N entries")
	cmd.Flags().BoolVar(&o.summary, "summary", false, "Show summary statistics")
	return cmd
}

func logCommand(cmd *cobra.Command, g *globalFlags, o *logOptions) error {
	cfg, err := g.config("")
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())

	auditLog, err := openLog(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	var all, filtered []audit.Entry
	for e, err := range auditLog.Iterate(cmd.Context(), audit.All) {
		if err != nil {
			return fmt.Errorf("failed to read audit log: %w", err)
		}
		all = append(all, e)
		if o.match(e) {
			filtered = append(filtered, e)
		}
	}

	out := cmd.OutOrStdout()
	if len(all) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	if o.last > 0 && o.last < len(filtered) {
		filtered = filtered[len(filtered)-o.last:]
	}

	if o.summary {
		printSummary(out, all)
		return nil
	}
	printEntries(out, filtered)
	return nil
}

func (o *logOptions) match(e audit.Entry) bool {
	if o.action != "" && !strings.EqualFold(e.Action, o.action) {
		return false
	}
	if o.guardID != "" && e.GuardID != o.guardID {
		return false
	}
	if o.runID != "" && e.RunID != o.runID {
		return false
	}
	if o.faulted && e.Fault == "" {
		return false
	}
	return true
}

func printEntries(w io.Writer, entries []audit.Entry) {
	for _, e := range entries {
		actionColor(e.Action).Fprintf(w, "%-8s", e.Action)
		fmt.Fprintf(w, " #%-6d %s  %-10s", e.Sequence, formatTimestamp(e.Timestamp), e.GuardID)
		if len(e.EntityKinds) > 0 {
			fmt.Fprintf(w, " %s", strings.Join(e.EntityKinds, ", "))
		}
		if e.Fault != "" {
			red.Fprintf(w, " fault=%s", e.Fault)
		}
		fmt.Fprintln(w)
		faint.Fprintf(w, "         run %s  hash %s\n", e.RunID, shortHash(e.Hash))
	}
}

func printSummary(w io.Writer, all []audit.Entry) {
	counts := map[string]int{}
	runs := map[string]bool{}
	guardBlocks := map[string]int{}
	faults := 0
	for _, e := range all {
		counts[e.Action]++
		runs[e.RunID] = true
		if e.Action == audit.ActionBlocked {
			guardBlocks[e.GuardID]++
		}
		if e.Fault != "" {
			faults++
		}
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  SafeLayer Audit Summary")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Total entries:   %d\n", len(all))
	fmt.Fprintf(w, "  Runs:            %d\n", len(runs))
	fmt.Fprintf(w, "  none:            %d\n", counts[audit.ActionNone])
	fmt.Fprintf(w, "  masked:          %d\n", counts[audit.ActionMasked])
	fmt.Fprintf(w, "  warned:          %d\n", counts[audit.ActionWarned])
	fmt.Fprintf(w, "  blocked:         %d\n", counts[audit.ActionBlocked])
	fmt.Fprintf(w, "  Guard faults:    %d\n", faults)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  First entry:     %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last entry:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	if len(guardBlocks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Blocks by guard:")
		for _, id := range slices.Sorted(maps.Keys(guardBlocks)) {
			fmt.Fprintf(w, "    %-12s %d\n", id, guardBlocks[id])
		}
	}
	fmt.Fprintln(w)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
