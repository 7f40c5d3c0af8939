package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		format string
		write  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <project.json>",
		Short: "Infer roles and layout strategies and print the tree summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadFile(args[0])
			if err != nil {
				return err
			}
			res := s.Analyze()
			data, err := res.Encode(format)
			if err != nil {
				return err
			}
			if write {
				doc, err := s.ToJSON()
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[0], doc, 0644); err != nil {
					return fmt.Errorf("write %s: %w", args[0], err)
				}
				c.Logger.Info("semantics written", zap.String("path", args[0]))
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "summary format: json or yaml")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the inferred semantics back into the project file")
	return cmd
}
