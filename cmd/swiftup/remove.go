package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/platform"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolcache"
)

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <version>...",
		Short: "Remove cached toolchains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.target()
			if err != nil {
				return err
			}
			if err := target.Validate(); err != nil {
				return fmt.Errorf("%w (pass --platform name:version)", err)
			}

			cache := a.cache()
			receipts, err := a.openReceipts()
			if err != nil {
				a.logger.Warn("install receipts unavailable", "error", err)
			} else {
				defer receipts.Close()
			}

			var errs []error
			for _, version := range args {
				if err := removeOne(cmd, cache, target, version); err != nil {
					errs = append(errs, err)
					continue
				}
				if receipts != nil {
					if err := receipts.Remove(cmd.Context(), target.Namespace(), version); err != nil {
						a.logger.Warn("remove install receipt", "version", version, "error", err)
					}
				}
			}
			return errors.Join(errs...)
		},
	}
}

func removeOne(cmd *cobra.Command, cache *toolcache.Store, target platform.Descriptor, version string) error {
	err := cache.Remove(cmd.Context(), target.Namespace(), version)
	if errors.Is(err, toolcache.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Swift %s for %s is not cached\n", yellow("!"), bold(version), target.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", version, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Removed Swift %s for %s\n", green("✓"), bold(version), target.Name)
	return nil
}
