package main

import (
	"fmt"
	"os"

	"github.com/mattsolo1/grove-core/cli"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-itemtree/cmd"
	"github.com/mattsolo1/grove-itemtree/cmd/config"
	"github.com/mattsolo1/grove-itemtree/pkg/service"
)

var svc *service.Service

func main() {
	rootCmd := cli.NewStandardCommand(
		"itree",
		"Walk and inspect hierarchical item trees",
	)
	config.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		// This runs once before any subcommand, after flags are parsed.
		if c.Name() == "version" {
			return nil
		}
		config.InitConfig()

		logger, err := config.NewLogger()
		if err != nil {
			return err
		}
		svc, err = config.InitService(logger)
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if svc == nil {
			return nil
		}
		return svc.Close()
	}

	rootCmd.AddCommand(cmd.NewWalkCmd(&svc))
	rootCmd.AddCommand(cmd.NewListCmd(&svc))
	rootCmd.AddCommand(cmd.NewAncestorCmd(&svc))
	rootCmd.AddCommand(cmd.NewImportCmd(&svc))
	rootCmd.AddCommand(cmd.NewDumpCmd(&svc))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
