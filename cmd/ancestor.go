package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-itemtree/pkg/service"
)

func NewAncestorCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ancestor <path> <degree>",
		Short: "Print the ancestor of an item at an absolute depth",
		Long: `Print the path of the ancestor at the given degree. Degree 0 is the
root and the item's own depth is the item itself.

Flags go before the path; a negative degree is an argument, not a flag.

Examples:
  itree ancestor /a/b/c 1   # /a
  itree ancestor /a/b/c 3   # /a/b/c`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			degree, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid degree %q: %w", args[1], err)
			}

			anc, err := (*svc).Ancestor(args[0], degree)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), anc.Path())
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)

	return cmd
}
