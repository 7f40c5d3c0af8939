package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <project.json>...",
		Short: "Check project files for broken hierarchy and unsupported versions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				s, err := c.loadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d elements)\n", path, len(s.Elements()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d project files are invalid", failed, len(args))
			}
			return nil
		},
	}
}
