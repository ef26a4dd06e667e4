package root

import (
	"github.com/spf13/cobra"
)

// RootCmd is the devplane CLI entry point. Subcommand packages register
// themselves on it via their Init functions.
var RootCmd = &cobra.Command{
	Use:   "devplane",
	Short: "Developer platform CLI",
	Long:  "Command line interface for the devplane developer platform API.",
}

// GetRoot returns the root command.
func GetRoot() *cobra.Command {
	return RootCmd
}
