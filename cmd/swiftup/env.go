package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/shell"
)

func newEnvCmd(a *app) *cobra.Command {
	var shellName string

	cmd := &cobra.Command{
		Use:   "env [version]",
		Short: "Install a toolchain and print shell code that adds it to PATH",
		Long: `Install a toolchain if needed and print a PATH statement for your shell.

Add it to the current shell with:

  eval "$(swiftup env 5.9)"            # bash, zsh
  swiftup env 5.9 --shell fish | source`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := resolveShell(shellName)
			if err != nil {
				return err
			}
			a.logger.Debug("exporting for shell", "shell", sh)

			version, err := a.version(args)
			if err != nil {
				return err
			}

			exporter, err := shell.NewExporter(cmd.OutOrStdout(), sh)
			if err != nil {
				return err
			}

			_, err = a.install(cmd.Context(), version, exporter, cmd.ErrOrStderr())
			return err
		},
	}

	cmd.Flags().StringVar(&shellName, "shell", "", "Shell to print for: bash, zsh or fish (default: detected)")
	return cmd
}

// resolveShell parses name, or detects the user's shell when name is empty.
func resolveShell(name string) (shell.ShellType, error) {
	if name != "" {
		return shell.ParseShell(name)
	}
	result, err := shell.DetectShell()
	if err != nil {
		return shell.ShellUnknown, err
	}
	if !result.Shell.IsValid() {
		return shell.ShellUnknown, fmt.Errorf("could not detect your shell; pass --shell bash, zsh or fish")
	}
	return result.Shell, nil
}
