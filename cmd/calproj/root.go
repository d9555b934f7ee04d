package main

import (
	"fmt"

	"calproj/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root calproj command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "calproj",
		Short:         "Calcium imaging project scaffolder",
		Long:          "calproj scaffolds standardized directory trees for calcium imaging\nexperiments and processes the images recorded into them.",
		Version:       fmt.Sprintf("calproj %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newSetupCmd(),
		newProcessCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newRunsCmd(),
	)

	return cmd
}
