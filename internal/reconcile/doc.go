// Package reconcile rebuilds the workspace index from the project
// directories on disk.
//
// Overview
//
// Each project lives in projects/<slug>/project.json and that file is the
// source of truth. The index at the workspace root is only a cache of
// summaries, and it can drift: a directory may be copied in by hand, a
// record may lose fields to an older tool, or a crash may land between a
// record write and the index write. Reconcile walks the directories and
// makes the index match them again:
//
//	projects/
//	  ├── alpha/project.json   → readable: repaired if needed, listed
//	  ├── beta/project.json    → unreadable: logged, skipped, left alone
//	  └── .trash/              → hidden: ignored
//	                                ↓
//	                           Reconciler
//	                                ↓
//	                  index.json (+ optional catalog mirror)
//
// Repair
//
// A record missing required keys is filled from the previous index entry
// for the same slug, falling back to the directory name for id and
// projectName and to the current time for timestamps. Two directories with
// the same id are disambiguated by giving the later slug a fresh id. A
// repaired record is written back; if that write fails the project is still
// listed from the repaired copy in memory.
//
// Usage
//
//	r := reconcile.New(ws, logger, reconcile.WithMirror(catalogDB))
//	res, err := r.Reconcile(ctx, currentIndex)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%d listed, %d repaired, %d skipped\n",
//	    len(res.Index.Projects), len(res.Repaired), len(res.Skipped))
//
// Reconcile is idempotent: running it twice without disk changes in between
// produces the same index and repairs nothing the second time.
package reconcile
