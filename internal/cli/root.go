package cli

import (
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	policyPath string
	auditPath  string
	backend    string
	logLevel   string
	mode       string
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "safelayer",
		Short: "SafeLayer - guard orchestration for AI agent output",
		Long: `SafeLayer passes text through an ordered chain of guards (PII, secrets,
tone, TTS hazards, prompt injection), applies the configured policy to
every detection, and records each decision in a tamper-evident,
hash-chained audit log.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.policyPath, "policy", "", "Path to policy YAML or JSON file (default: ~/.safelayer/policy.yaml)")
	pf.StringVar(&g.auditPath, "audit", "", "Path to audit log file for the file backend (default: ~/.safelayer/audit.jsonl)")
	pf.StringVar(&g.backend, "backend", "", "Audit backend: file, memory, redis or postgres (default: file)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	pf.StringVar(&g.mode, "mode", "", "Default fault mode: fail_fast or warn_continue")

	rootCmd.AddCommand(
		newRunCmd(g),
		newAuditCmd(g),
		newPolicyCmd(g),
		newPackCmd(g),
		newServeCmd(g),
		newScanCmd(g),
		newStatusCmd(g),
		newVersionCmd(),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
