// # Architecture
//
// The daemon consists of three components:
//
//   - Detector: tracks the modification signal of places.sqlite and its
//     write-ahead log. A change stays pending until a pass acknowledges it.
//   - FileWatcher: optional fsnotify watch on the profile directory that
//     wakes the loop early. Polling still decides whether anything changed.
//   - Daemon: the single-threaded loop that runs one pass at a time.
//
// # Usage
//
//	detector, err := daemon.NewDetector(afero.NewOsFs(), dbPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := daemon.DefaultConfig()
//	config.ReconcileOnStart = true
//
//	d, err := daemon.New(syncer, detector, places.NewSource(dbPath), config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := d.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pass selection
//
// A detected change runs SyncAll, or SyncLatest when FastPath is set.
// SyncLatest only adds the newest bookmark, so deletions in the browser
// reach the directory at the next full pass (ReconcileOnStart or
// ReconcileInterval).
//
// # Failure handling
//
// A failed pass is logged and the change is left unacknowledged, so the
// next poll runs it again. There is no backoff.
package daemon
