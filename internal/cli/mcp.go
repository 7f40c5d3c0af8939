package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "pagecraft/internal/mcp"
	"pagecraft/internal/service"
	"pagecraft/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func (c *CLI) mcpCommand() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the page builder to AI agents over MCP stdio",
		Long: `mcp runs a Model Context Protocol server on stdin/stdout. Agents get
tools to add, move and style elements, analyze the layout, undo, save
projects and export archives. With --project the named project is opened
(or created on first save); autosave.enabled saves it on a schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := c.openStorage()
			if err != nil {
				return err
			}
			defer db.Close()

			sess := c.newSession(service.WithStorage(db, c.Config.Autosave.KeepRevisions))
			if err := c.openProject(ctx, sess, project); err != nil {
				return err
			}

			if c.Config.Autosave.Enabled {
				saver := service.NewAutosaver(sess, c.Config.Autosave.Schedule, c.Logger)
				if err := saver.Start(ctx); err != nil {
					return err
				}
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					saver.Stop(stopCtx)
					if _, err := saver.RunOnce(stopCtx); err != nil {
						c.Logger.Warn("final autosave failed", zap.Error(err))
					}
				}()
			}

			srv := mcpserver.New(mcpserver.Deps{
				Session: sess,
				Config:  c.Config,
				Logger:  c.Logger,
				Version: version,
			})
			return srv.ServeStdio()
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project to open by id or name")
	return cmd
}

// openProject opens ref when it exists. A name that was never saved becomes
// the name of the first save.
func (c *CLI) openProject(ctx context.Context, sess *service.Session, ref string) error {
	if ref == "" {
		return nil
	}
	_, err := sess.Open(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		c.Logger.Info("new project", zap.String("project", ref))
		return sess.Rename(ref)
	}
	return err
}
