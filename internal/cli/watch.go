package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagecraft/internal/service"
)

type watchOptions struct {
	export   service.FileExport
	project  string
	debounce time.Duration
}

func (c *CLI) watchCommand() *cobra.Command {
	var (
		opts      watchOptions
		noAnalyze bool
	)
	cmd := &cobra.Command{
		Use:   "watch <project.json>",
		Short: "Re-export a project file whenever it changes",
		Long: `watch exports the project once, then again each time the file is
saved. With --project every change is also imported into the project
database and saved as a revision on the autosave schedule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.export.Input = args[0]
			opts.export.Analyze = !noAnalyze
			return c.runWatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.export.Output, "output", "o", "", "archive path (default <export.output_dir>/<name>.zip)")
	cmd.Flags().StringVar(&opts.export.Title, "title", "", "page title (default export.title)")
	cmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "export the semantics stored in the file as they are")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "also record changes as revisions of this project")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", service.DefaultDebounce, "wait this long for writes to settle")
	return cmd
}

// runWatch exports once, then runs the file watcher and, with a project,
// the autosaver until ctx ends.
func (c *CLI) runWatch(ctx context.Context, opts watchOptions, out io.Writer) error {
	var sess *service.Session
	if opts.project != "" {
		db, err := c.openStorage()
		if err != nil {
			return err
		}
		defer db.Close()
		sess = c.newSession(service.WithStorage(db, c.Config.Autosave.KeepRevisions))
		if err := c.openProject(ctx, sess, opts.project); err != nil {
			return err
		}
	}

	job := func(ctx context.Context) error {
		path, err := service.ExportFile(ctx, c.Config, opts.export, c.Logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		if sess == nil {
			return nil
		}
		data, err := os.ReadFile(opts.export.Input)
		if err != nil {
			return fmt.Errorf("read project: %w", err)
		}
		return sess.Import(data)
	}
	if err := job(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	w := service.NewWatcher(opts.export.Input, job, c.Logger)
	if opts.debounce > 0 {
		w.SetDebounce(opts.debounce)
	}
	g.Go(func() error { return w.Run(gctx) })

	if sess != nil {
		saver := service.NewAutosaver(sess, c.Config.Autosave.Schedule, c.Logger)
		g.Go(func() error {
			if err := saver.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			saver.Stop(stopCtx)
			if _, err := saver.RunOnce(stopCtx); err != nil {
				c.Logger.Warn("final autosave failed", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}
