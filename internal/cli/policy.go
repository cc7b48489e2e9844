package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/slkreddy/SafeLayer/internal/guards"
	"github.com/slkreddy/SafeLayer/internal/policy"
)

func newPolicyCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show, validate and initialise policy files",
	}
	cmd.AddCommand(newPolicyShowCmd(g), newPolicyValidateCmd(g), newPolicyInitCmd(g))
	return cmd
}

func newPolicyShowCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective policy with packs merged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config("")
			if err != nil {
				return err
			}
			pol, _, err := loadPolicy(cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(pol)
			case "json":
				data, err = json.MarshalIndent(pol, "", "  ")
				data = append(data, '\n')
			default:
				return fmt.Errorf("unknown format %q (expected yaml or json)", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

func newPolicyValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a policy file for errors",
		Long: `Parse a policy file, resolve its parent chain and check every guard
entry. Entries naming no built-in guard are reported as warnings.
Without an argument the configured policy file is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := g.config("")
				if err != nil {
					return err
				}
				path = cfg.PolicyPath
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("policy file %s does not exist", path)
			}
			pol, err := policy.Load(path)
			if err != nil {
				return err
			}
			if err := policy.Validate(pol); err != nil {
				red.Fprintf(out, "✗ %s is invalid\n", path)
				return err
			}
			for _, id := range slices.Sorted(maps.Keys(pol.Guards)) {
				if !guards.Known(id) {
					yellow.Fprintf(out, "! guard %q is not a built-in guard\n", id)
				}
			}
			green.Fprintf(out, "✓ %s", path)
			fmt.Fprintf(out, ": policy %q v%s, %d guard entries\n", pol.Name, pol.Version, len(pol.Guards))
			return nil
		},
	}
}

func newPolicyInitCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default policy to the configured policy path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config("")
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.PolicyPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfg.PolicyPath)
			}
			if err := policy.Save(policy.DefaultPolicy(), cfg.PolicyPath); err != nil {
				return fmt.Errorf("failed to write policy: %w", err)
			}
			green.Fprintf(cmd.OutOrStdout(), "✓ wrote default policy to %s\n", cfg.PolicyPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing policy file")
	return cmd
}
