package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
	"github.com/mattsolo1/grove-itemtree/pkg/service"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

var listUlog = grovelogging.NewUnifiedLogger("grove-itemtree.cmd.list")

type listEntry struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

func NewListCmd(svc **service.Service) *cobra.Command {
	var listJSON bool

	cmd := &cobra.Command{
		Use:     "ls [path]",
		Short:   "List the properties and child nodes of a node",
		Aliases: []string{"list"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s := *svc
			path := itempath.Separator
			if len(args) > 0 {
				path = args[0]
			}

			items, err := s.List(path)
			if err != nil {
				return err
			}
			entries, err := toEntries(items)
			if err != nil {
				return err
			}

			if len(entries) == 0 && !listJSON {
				listUlog.Info("Node is empty").
					Field("path", path).
					Pretty(fmt.Sprintf("%s has no properties or child nodes", path)).
					PrettyOnly().
					Log(ctx)
				return nil
			}

			if listJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}
			printItemsTable(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")

	return cmd
}

func toEntries(items []tree.Item) ([]listEntry, error) {
	entries := make([]listEntry, 0, len(items))
	for _, item := range items {
		entry := listEntry{Path: item.Path(), Kind: "node"}
		if prop, ok := item.(tree.Property); ok && !item.IsNode() {
			value, err := prop.Value()
			if err != nil {
				return nil, err
			}
			entry.Kind = "property"
			entry.Type = string(prop.Type())
			entry.Value = value
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func printItemsTable(out io.Writer, entries []listEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "KIND\tPATH\tTYPE\tVALUE")
	fmt.Fprintln(w, "--------\t-----------------------------\t---------\t--------------------")

	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Kind, e.Path, e.Type, truncateString(e.Value, 40))
	}

	w.Flush()
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
