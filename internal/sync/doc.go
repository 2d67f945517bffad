// Overview
//
// The sync package orchestrates one pass of the bookmark mirror:
//
//	places.sqlite (copy)          mirror directory
//	     │                              │
//	  Snapshot                      Inventory
//	     └──────────► Diff ◄────────────┘
//	                   │
//	       ┌───────────┴───────────┐
//	  Materialize (ToAdd)    Remove (ToRemove)
//
// There is no sync log: the directory contents are the only record of past
// passes, so running a pass twice without a bookmark change does nothing the
// second time.
//
// Usage
//
//	dir := mirror.NewDir(afero.NewOsFs(), "/path/to/Bookmarks")
//	if err := dir.Ensure(); err != nil {
//	    return err
//	}
//	m := mirror.NewMaterializer(dir, mirror.Options{})
//	s := sync.New(places.NewSource(dbPath), dir, m, sync.Config{Folder: "R"})
//
//	result, err := s.SyncAll(ctx)
//	if err != nil {
//	    // snapshot or directory unavailable; try again on the next poll
//	}
//	log.Printf("added=%d removed=%d failed=%d", result.Added, result.Removed, result.Failed)
//
// Error handling
//
// Item failures (download errors, non-200 responses, write or delete
// failures, unusable titles) are logged, counted in PassResult.Failed and
// reported to the Notifier. They never abort the pass and are never retried
// within it.
//
// Pass failures (the database copy or query fails, the directory cannot be
// listed) are returned as errors wrapping bookmark.ErrSourceUnavailable or
// bookmark.ErrDirectoryUnavailable.
package sync
