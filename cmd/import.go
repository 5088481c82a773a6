package cmd

import (
	"fmt"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-itemtree/pkg/service"
)

var importUlog = grovelogging.NewUnifiedLogger("grove-itemtree.cmd.import")

func NewImportCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored tree with a YAML tree file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Import(args[0]); err != nil {
				return err
			}

			importUlog.Success("Tree imported").
				Field("file", args[0]).
				Field("data_dir", s.Config.DataDir).
				Pretty(fmt.Sprintf("* Imported %s into %s", args[0], s.Config.DataDir)).
				PrettyOnly().
				Emit()
			return nil
		},
	}
}
