package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
	"github.com/mattsolo1/grove-itemtree/pkg/service"
)

func NewDumpCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [path]",
		Short: "Write a subtree as a YAML tree file",
		Long: `Write the subtree rooted at path to stdout in the format read by
import and --file.

Examples:
  itree dump > backup.yaml
  itree dump /articles`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := itempath.Separator
			if len(args) > 0 {
				path = args[0]
			}
			return (*svc).Dump(path, cmd.OutOrStdout())
		},
	}
}
