package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagecraft/internal/service"
)

func (c *CLI) exportCommand() *cobra.Command {
	var (
		output    string
		title     string
		noAnalyze bool
	)
	cmd := &cobra.Command{
		Use:   "export <project.json>",
		Short: "Export a project file as a static site archive",
		Long: `Export loads a project document, runs the layout analyzer and writes
index.html, style.css, app.js and README.md into a ZIP archive. Equal input
always gives byte-identical archives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := service.ExportFile(cmd.Context(), c.Config, service.FileExport{
				Input:   args[0],
				Output:  output,
				Title:   title,
				Analyze: !noAnalyze,
			}, c.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (default <export.output_dir>/<name>.zip)")
	cmd.Flags().StringVar(&title, "title", "", "page title (default export.title)")
	cmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "export the semantics stored in the file as they are")
	return cmd
}
