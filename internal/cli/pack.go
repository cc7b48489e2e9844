package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slkreddy/SafeLayer/internal/policy"
)

func newPackCmd(g *globalFlags) *cobra.Command {
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Manage policy packs",
		Long: `Manage SafeLayer policy packs.

Policy packs are YAML files of guard entries for a specific domain.
Packs are stored in ~/.safelayer/packs/ and merged with your base policy at
runtime; a pack can tighten a guard but never loosen it.

Examples:
  safelayer pack list              # List installed packs
  safelayer pack enable medical    # Enable a pack
  safelayer pack disable medical   # Disable a pack
  safelayer pack show medical      # Show pack details`,
	}

	packCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List installed policy packs",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return packList(cmd, g) },
		},
		&cobra.Command{
			Use:   "enable <pack-name>",
			Short: "Enable a disabled policy pack",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return packToggle(cmd, g, args[0], true) },
		},
		&cobra.Command{
			Use:   "disable <pack-name>",
			Short: "Disable a policy pack (prefix with underscore)",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return packToggle(cmd, g, args[0], false) },
		},
		&cobra.Command{
			Use:   "show <pack-name>",
			Short: "Show details of a policy pack",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return packShow(cmd, g, args[0]) },
		},
	)
	return packCmd
}

func packsDir(g *globalFlags) (string, error) {
	cfg, err := g.config("")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.PacksDir, 0700); err != nil {
		return "", err
	}
	return cfg.PacksDir, nil
}

func packList(cmd *cobra.Command, g *globalFlags) error {
	dir, err := packsDir(g)
	if err != nil {
		return err
	}

	_, infos, err := policy.LoadPacks(dir, policy.DefaultPolicy())
	if err != nil {
		return fmt.Errorf("failed to load packs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No policy packs installed.")
		fmt.Fprintf(out, "\nTo install packs, copy YAML files to: %s\n", dir)
		return nil
	}

	fmt.Fprintln(out, "Installed Policy Packs:")
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for _, info := range infos {
		switch {
		case info.Err != nil:
			red.Fprint(out, "  ✗  ")
			fmt.Fprintf(out, "%-25s %v\n", filepath.Base(info.Path), info.Err)
			continue
		case info.Enabled:
			green.Fprint(out, "  ✓  ")
		default:
			faint.Fprint(out, "  -  ")
		}
		fmt.Fprintf(out, "%-25s %s\n", info.Name, info.Description)
		if info.Version != "" {
			fmt.Fprintf(out, "       v%s by %s  (%d guards)\n", info.Version, info.Author, info.GuardCount)
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "\nPacks directory: %s\n", dir)
	return nil
}

func packToggle(cmd *cobra.Command, g *globalFlags, name string, enable bool) error {
	dir, err := packsDir(g)
	if err != nil {
		return err
	}

	enabledPath := filepath.Join(dir, name+".yaml")
	disabledPath := filepath.Join(dir, "_"+name+".yaml")
	from, to, verb := disabledPath, enabledPath, "enabled"
	if !enable {
		from, to, verb = enabledPath, disabledPath, "disabled"
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(from); err == nil {
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to %s pack: %w", strings.TrimSuffix(verb, "d"), err)
		}
		fmt.Fprintf(out, "Pack '%s' %s.\n", name, verb)
		return nil
	}

	if _, err := os.Stat(to); err == nil {
		fmt.Fprintf(out, "Pack '%s' is already %s.\n", name, verb)
		return nil
	}

	return fmt.Errorf("pack '%s' not found in %s", name, dir)
}

func packShow(cmd *cobra.Command, g *globalFlags, name string) error {
	dir, err := packsDir(g)
	if err != nil {
		return err
	}

	// Try enabled, then disabled
	path := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, "_"+name+".yaml")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("pack '%s' not found in %s", name, dir)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
