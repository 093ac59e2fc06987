package watch_test

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/storyreel/storyreel/internal/project"
	"github.com/storyreel/storyreel/internal/watch"
	"github.com/storyreel/storyreel/internal/workspace"
)

// This example keeps a store's index in sync until interrupted.
// Note: This is for documentation only and won't run as a test.
func ExampleWatcher() {
	ws, err := workspace.Open("/path/to/workspace", nil)
	if err != nil {
		log.Fatal(err)
	}
	store := project.NewStore(ws, project.Options{})
	if err := store.Load(context.Background()); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	w, err := watch.New(ws.ProjectsDir(), store, watch.Options{})
	if err != nil {
		log.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer w.Stop()

	<-ctx.Done()
}
