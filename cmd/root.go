package cmd

import (
	"github.com/spf13/cobra"
)

func showHelp(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ngxmon",
		Short: "A terminal dashboard for nginx access and error logs",
		Args:  cobra.NoArgs,
		RunE:  showHelp,
	}
	rootCmd.AddCommand(
		runCmd(),
		onceCmd(),
		followCmd(),
	)
	return rootCmd
}
