package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/slkreddy/SafeLayer/internal/audit"
	"github.com/slkreddy/SafeLayer/internal/config"
	"github.com/slkreddy/SafeLayer/internal/guards"
	"github.com/slkreddy/SafeLayer/internal/policy"
)

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show SafeLayer status: config, policy, packs, audit log",
		Long: `Check how SafeLayer is configured: which policy file and packs are in
effect, which guards will run, and the state of the audit log.

  safelayer status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCommand(cmd, g)
		},
	}
}

// statusWindow is how many trailing audit entries status verifies.
const statusWindow = 100

func statusCommand(cmd *cobra.Command, g *globalFlags) error {
	cfg, err := g.config("")
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "  SafeLayer Status")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Fprintf(out, "  Binary:    %s (%s)\n", binPath, Version)
	fmt.Fprintf(out, "  Config:    %s\n", cfg.ConfigDir)
	mode := cfg.Mode
	if mode == "" {
		mode = "policy default"
	}
	fmt.Fprintf(out, "  Mode:      %s\n", mode)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Policy ────────────────────────────────────────────")
	checkPolicyFile(out, cfg.PolicyPath)
	pol, infos, err := loadPolicy(cfg, log)
	if err != nil {
		red.Fprintf(out, "  ✗  %v\n", err)
	} else {
		enabled := 0
		for _, info := range infos {
			if info.Enabled && info.Err == nil {
				enabled++
			}
		}
		if len(infos) > 0 {
			fmt.Fprintf(out, "  ✓  Policy packs: %d installed, %d enabled\n", len(infos), enabled)
		} else {
			fmt.Fprintln(out, "  -  No policy packs installed")
		}
		printGuardChain(out, pol)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Audit Log ─────────────────────────────────────────")
	checkAuditLog(cmd, out, cfg)
	fmt.Fprintln(out)
	return nil
}

func checkPolicyFile(w io.Writer, path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  -  Policy file: %s (not found, using built-in default)\n", path)
		return
	}
	green.Fprint(w, "  ✓  ")
	fmt.Fprintf(w, "Policy file: %s\n", path)
}

func printGuardChain(w io.Writer, pol *policy.Policy) {
	fmt.Fprintf(w, "  Policy %q v%s\n", pol.Name, pol.Version)
	for _, id := range guards.DefaultOrder {
		gp, ok := pol.Lookup(id)
		switch {
		case !ok:
			faint.Fprintf(w, "     %-10s not configured\n", id)
		case !gp.IsEnabled():
			faint.Fprintf(w, "     %-10s disabled\n", id)
		default:
			gp = pol.Resolve(id)
			fmt.Fprintf(w, "     %-10s ", id)
			actionColor(actionName(gp.Action)).Fprintf(w, "%-6s", gp.Action)
			if gp.Threshold > 0 {
				fmt.Fprintf(w, " threshold %.2f", gp.Threshold)
			}
			fmt.Fprintln(w)
		}
	}
}

// actionName maps a policy action to the audit action it produces.
func actionName(a policy.Action) string {
	switch a {
	case policy.ActionBlock:
		return "blocked"
	case policy.ActionWarn:
		return "warned"
	default:
		return "masked"
	}
}

func checkAuditLog(cmd *cobra.Command, w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "  Backend:   %s\n", cfg.Audit.Backend)
	switch cfg.Audit.Backend {
	case config.BackendFile:
		fmt.Fprintf(w, "  Path:      %s\n", cfg.Audit.Path)
	case config.BackendRedis:
		fmt.Fprintf(w, "  Address:   %s\n", cfg.Audit.RedisAddr)
	}

	auditLog, err := openLog(cmd.Context(), cfg, newLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		red.Fprintf(w, "  ✗  %v\n", err)
		return
	}
	defer auditLog.Close()

	res, err := auditLog.Verify(cmd.Context(), auditLogTail(auditLog.Head()))
	switch {
	case err != nil:
		red.Fprintf(w, "  ✗  %v\n", err)
	case !res.Valid:
		red.Fprintf(w, "  ✗  %d entries, chain broken at sequence %d\n", auditLog.Head(), res.BrokenAt)
	default:
		green.Fprint(w, "  ✓  ")
		fmt.Fprintf(w, "%d entries, last %d verified (run 'safelayer audit verify' for the full chain)\n", auditLog.Head(), res.Checked)
	}
}

func auditLogTail(head uint64) audit.Range {
	if head <= statusWindow {
		return audit.All
	}
	return audit.Range{From: head - statusWindow}
}
