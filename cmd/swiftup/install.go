package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolchain"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install [version]",
		Short: "Download, verify and cache a Swift toolchain",
		Long: `Install a Swift toolchain release into the tool cache.

The release signature is checked against the Swift signing keys before
anything is cached. A cached release is reused without network access.
When $GITHUB_PATH or --github-path is set, the toolchain's bin directory is
appended to it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := a.version(args)
			if err != nil {
				return err
			}

			inst, err := a.install(cmd.Context(), version, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printInstallation(cmd.OutOrStdout(), inst)
			return nil
		},
	}
}

func printInstallation(w io.Writer, inst *toolchain.Installation) {
	how := "installed"
	if inst.FromCache {
		how = "already cached"
	}
	fmt.Fprintf(w, "%s Swift %s for %s %s\n", green("✓"), bold(inst.Version), inst.Platform, how)
	fmt.Fprintf(w, "  %s %s\n", dim("root:"), inst.Root)
	fmt.Fprintf(w, "  %s  %s\n", dim("bin:"), inst.BinPath)
	if inst.Signer != "" {
		fmt.Fprintf(w, "  %s %s\n", dim("signed by:"), inst.Signer)
	}
}
