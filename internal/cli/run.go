package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/slkreddy/SafeLayer/internal/manager"
)

// ErrBlocked is returned by run when a guard blocked the text. Nothing is
// written to the output in that case.
var ErrBlocked = errors.New("blocked by SafeLayer")

type runOptions struct {
	input  string
	output string
	guards []string
	quiet  bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run text through the guards",
		Long: `Run text through SafeLayer's guard chain and write the filtered result.

Text is read from --input, or from stdin when --input is empty or "-".
Every guard decision is appended to the audit log.

Examples:
  echo "mail me at bob@example.com" | safelayer run
  safelayer run --input reply.txt --output reply.safe.txt
  safelayer run --guards email,phone --policy ./strict.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, g, o)
		},
	}
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "Read text from file (default: stdin)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write filtered text to file (default: stdout)")
	cmd.Flags().StringSliceVar(&o.guards, "guards", nil, "Guards to run, in order (default: every guard the policy configures)")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Do not print the decision summary")
	return cmd
}

func runCommand(cmd *cobra.Command, g *globalFlags, o *runOptions) error {
	cfg, err := g.config("")
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pol, _, err := loadPolicy(cfg, log)
	if err != nil {
		return err
	}
	gs, err := selectGuards(o.guards, pol, log)
	if err != nil {
		return err
	}

	text, err := readInput(cmd, o.input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	auditLog, err := openLog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	res, err := newManager(auditLog, cfg, log).Run(ctx, text, gs, pol)
	if !o.quiet {
		printRunSummary(cmd.ErrOrStderr(), res)
	}
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	switch res.Status {
	case manager.StatusBlocked:
		return ErrBlocked
	case manager.StatusFailed:
		return fmt.Errorf("run failed: %w", res.Err)
	case manager.StatusCancelled:
		return fmt.Errorf("run cancelled: %w", res.Err)
	}
	return writeOutput(cmd, o.output, res.OutputText)
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		return string(data), err
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Enter text, then Ctrl-D:")
	}
	data, err := io.ReadAll(in)
	return string(data), err
}

func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
