package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
			if commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", commit)
			}
			if date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built:  %s\n", date)
			}
		},
	}
}
