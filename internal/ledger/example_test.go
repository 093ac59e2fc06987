package ledger_test

import (
	"fmt"

	"github.com/storyreel/storyreel/internal/ledger"
)

// A note on the cut after the first scene follows that scene when the
// third scene is moved to the front.
func ExampleLedger_Reindex() {
	l := ledger.New(nil)
	_, _ = l.Set(0, "hard cut")

	l.Reindex(2, 0)
	l.Cleanup(3)

	for _, t := range l.Entries() {
		fmt.Println(t.SceneIndex, t.Description)
	}
	// Output: 1 hard cut
}

// Deleting a scene shifts the notes after it down by one.
func ExampleLedger_RemoveScene() {
	l := ledger.New(nil)
	_, _ = l.Set(0, "fade")
	_, _ = l.Set(2, "wipe")

	l.RemoveScene(1)
	l.Cleanup(3)

	for _, t := range l.Entries() {
		fmt.Println(t.SceneIndex, t.Description)
	}
	// Output:
	// 0 fade
	// 1 wipe
}
