package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/receipt"
	"github.com/ZebulonRouseFrantzich/swiftup/internal/toolcache"
)

// Output formats for list
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// listItem is one cached toolchain joined with its receipt, if any.
type listItem struct {
	Namespace   string     `json:"namespace" yaml:"namespace"`
	Version     string     `json:"version" yaml:"version"`
	Arch        string     `json:"arch" yaml:"arch"`
	Path        string     `json:"path" yaml:"path"`
	CompletedAt time.Time  `json:"completed_at" yaml:"completed_at"`
	Archive     string     `json:"archive,omitempty" yaml:"archive,omitempty"`
	Signer      string     `json:"signer,omitempty" yaml:"signer,omitempty"`
	InstalledAt *time.Time `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached toolchains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatTable, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unknown output format %q (expected table, json or yaml)", format)
			}

			entries, err := a.cache().List()
			if err != nil {
				return err
			}

			var receipts []*receipt.Receipt
			if store, err := a.openReceipts(); err != nil {
				a.logger.Warn("install receipts unavailable", "error", err)
			} else {
				defer store.Close()
				if receipts, err = store.List(cmd.Context()); err != nil {
					a.logger.Warn("read install receipts", "error", err)
				}
			}

			return renderList(cmd.OutOrStdout(), format, joinReceipts(entries, receipts))
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, json or yaml")
	return cmd
}

func joinReceipts(entries []toolcache.Entry, receipts []*receipt.Receipt) []listItem {
	byKey := make(map[string]*receipt.Receipt, len(receipts))
	for _, r := range receipts {
		byKey[r.Namespace+"/"+r.Version+"/"+r.Arch] = r
	}

	items := make([]listItem, 0, len(entries))
	for _, e := range entries {
		item := listItem{
			Namespace:   e.Namespace,
			Version:     e.Version,
			Arch:        e.Arch,
			Path:        e.Path,
			CompletedAt: e.CompletedAt,
		}
		if r, ok := byKey[e.Namespace+"/"+e.Version+"/"+e.Arch]; ok {
			item.Archive = r.Archive
			item.Signer = r.Signer
			installed := r.InstalledAt
			item.InstalledAt = &installed
		}
		items = append(items, item)
	}
	return items
}

func renderList(w io.Writer, format string, items []listItem) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(items) == 0 {
		fmt.Fprintf(w, "%s No toolchains cached\n", dim("○"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tVERSION\tARCH\tCOMPLETED\tSIGNER")
	for _, it := range items {
		signer := it.Signer
		if signer == "" {
			signer = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			it.Namespace, it.Version, it.Arch, it.CompletedAt.Local().Format(time.DateTime), signer)
	}
	return tw.Flush()
}
