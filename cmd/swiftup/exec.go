package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/shell"
)

// exitError carries a child process's exit status out of RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.code)
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <version> -- <command> [args...]",
		Short: "Run a command with a toolchain first on PATH",
		Example: `  swiftup exec 5.9 -- swift build -c release
  swiftup exec 5.10 -- swift --version`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.install(cmd.Context(), args[0], shell.ProcessPath{}, cmd.ErrOrStderr()); err != nil {
				return err
			}

			// PATH was updated in this process, so LookPath sees the toolchain.
			child := exec.CommandContext(cmd.Context(), args[1], args[2:]...)
			child.Stdin = os.Stdin
			child.Stdout = cmd.OutOrStdout()
			child.Stderr = cmd.ErrOrStderr()
			child.Env = os.Environ()

			a.logger.Debug("running command", "path", child.Path, "args", args[2:])
			if err := child.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return &exitError{code: exitErr.ExitCode()}
				}
				return fmt.Errorf("run %s: %w", args[1], err)
			}
			return nil
		},
	}
}
