package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/notify"
	"github.com/storyreel/storyreel/internal/reconcile"
	"github.com/storyreel/storyreel/internal/ui"
	"github.com/storyreel/storyreel/internal/watch"
)

// lockedReconciler takes the workspace lock for each reconcile run, so a
// long-running watch does not block other commands between runs.
type lockedReconciler struct {
	a *app
}

func (l lockedReconciler) Reconcile(ctx context.Context) (*reconcile.Result, error) {
	lock, err := l.a.ws.AcquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Release()
	return l.a.store.Reconcile(ctx)
}

func startWatcher(ctx context.Context, a *app, notifier notify.Notifier) (*watch.Watcher, error) {
	w, err := watch.New(a.ws.ProjectsDir(), lockedReconciler{a: a}, watch.Options{
		Debounce: cfg.WatchDebounce,
		Logger:   logger.SugaredLogger,
		OnReconcile: func(changes []watch.Change, res *reconcile.Result, err error) {
			if err != nil {
				return
			}
			seen := map[string]bool{}
			for _, c := range changes {
				if seen[c.Slug] {
					continue
				}
				seen[c.Slug] = true
				if p, ok := res.Index.FindSlug(c.Slug); ok {
					notifier.Publish(notify.Event{Type: notify.ProjectChanged, ProjectID: p.ID, Detail: c.Op.String(), Timestamp: time.Now()})
				}
			}
		},
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "server",
	Short:   "Broadcast project changes over WebSocket and serve previews",
	Long: `Start a local server that pushes change events to connected clients.

Endpoints:
  ws://<addr>/ws               JSON events: project_list_changed,
                               project_changed, scene_changed
  http://<addr>/health         liveness
  http://<addr>/api/preview?project=<ref>&scene=<id>[&file=<name>]
                               issue a preview handle, answers
                               {"token", "url", "issuedAt"}
  http://<addr>/preview/<tok>  preview files by handle

Unless --watch=false is given, edits to the projects directory made by
other storyreel commands or by hand trigger a reconcile and an event.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.ServeAddr
		}
		watching, _ := cmd.Flags().GetBool("watch")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		previews := assets.NewPreviewCache()
		server := notify.NewServer(notify.Config{
			Addr:    addr,
			Preview: previews,
			Logger:  logger.SugaredLogger,
		})
		a, err := openApp(ctx, openOptions{notifier: server, previews: previews})
		if err != nil {
			return err
		}
		defer a.Close()
		server.Handle("/api/preview", a.store.PreviewHandler())

		if err := server.Start(); err != nil {
			return err
		}
		if watching {
			w, err := startWatcher(ctx, a, server)
			if err != nil {
				_ = server.Stop()
				return err
			}
			defer w.Stop()
		}

		fmt.Printf("%s Serving %s\n", ui.RenderAccent("●"), a.ws.Root)
		fmt.Printf("   WebSocket: ws://%s/ws\n", server.Addr())
		fmt.Printf("   Health:    http://%s/health\n", server.Addr())
		fmt.Printf("   Previews:  http://%s/api/preview\n", server.Addr())
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		<-ctx.Done()
		fmt.Println("\nShutting down...")
		previews.ReleaseAll()
		return server.Stop()
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "server",
	Short:   "Keep the index in sync with the projects directory",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		printer := notify.NotifierFunc(func(e notify.Event) {
			if jsonOutput {
				_ = outputJSON(e)
				return
			}
			fmt.Printf("%s %s %s %s\n", ui.RenderMuted(e.Timestamp.Format("15:04:05")), e.Type, e.ProjectID, e.Detail)
		})
		a, err := openApp(ctx, openOptions{notifier: printer})
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := startWatcher(ctx, a, printer)
		if err != nil {
			return err
		}
		defer w.Stop()

		if !jsonOutput {
			fmt.Printf("%s Watching %s\n", ui.RenderAccent("●"), a.ws.ProjectsDir())
			fmt.Printf("\nPress Ctrl+C to stop\n\n")
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from serve.addr, 127.0.0.1:7420)")
	serveCmd.Flags().Bool("watch", true, "reconcile when the projects directory changes")
	rootCmd.AddCommand(serveCmd, watchCmd)
}
