package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
	"github.com/mattsolo1/grove-itemtree/pkg/service"
)

func NewWalkCmd(svc **service.Service) *cobra.Command {
	var events bool

	cmd := &cobra.Command{
		Use:   "walk [path]",
		Short: "Print a subtree",
		Long: `Walk the subtree rooted at path and print one line per item.

Properties are shown as @name = value. Depth-first order is the default;
with --breadth-first every item of a level is printed before the next level.

Examples:
  itree walk                       # Whole tree from the store
  itree walk /articles --max-depth 1
  itree walk -f tree.yaml --breadth-first
  itree walk /articles --events    # Raw entering/leaving callbacks`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			path := itempath.Separator
			if len(args) > 0 {
				path = args[0]
			}

			if !events {
				return s.Walk(path, s.Options(), cmd.OutOrStdout())
			}

			recorded, err := s.Events(path, s.Options())
			if err != nil {
				return err
			}
			for _, e := range recorded {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}

	cmd.Flags().Bool("breadth-first", false, "Visit level by level")
	cmd.Flags().Int("max-depth", -1, "Deepest level to visit, -1 for no limit")
	cmd.Flags().BoolVar(&events, "events", false, "Print entering/leaving events instead of the tree")
	_ = viper.BindPFlag("breadth_first", cmd.Flags().Lookup("breadth-first"))
	_ = viper.BindPFlag("max_depth", cmd.Flags().Lookup("max-depth"))

	return cmd
}
