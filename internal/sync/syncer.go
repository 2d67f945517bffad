package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/mirror"
)

// Config configures a Syncer.
type Config struct {
	// Folder is the bookmark folder to mirror.
	Folder string

	// Verbose logs skipped bookmarks and memory use after each pass.
	Verbose bool

	// Logger for sync activity. Default: stderr with a [sync] prefix.
	Logger *log.Logger

	// Notifier, if set, receives item and pass outcomes.
	Notifier Notifier
}

// syncer implements the Syncer interface.
type syncer struct {
	source       Source
	dir          *mirror.Dir
	materializer *mirror.Materializer
	config       Config
	logger       *log.Logger
}

// New creates a Syncer.
//
// The mirror directory must already exist (see mirror.Dir.Ensure); the
// syncer treats a missing directory as a failed pass rather than creating it.
//
// Example:
//
//	dir := mirror.NewDir(afero.NewOsFs(), outputDir)
//	if err := dir.Ensure(); err != nil {
//	    return err
//	}
//	s := sync.New(places.NewSource(dbPath), dir, mirror.NewMaterializer(dir, mirror.Options{}), sync.Config{Folder: "R"})
func New(source Source, dir *mirror.Dir, materializer *mirror.Materializer, config Config) Syncer {
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &syncer{
		source:       source,
		dir:          dir,
		materializer: materializer,
		config:       config,
		logger:       config.Logger,
	}
}

// SyncAll implements Syncer.SyncAll.
func (s *syncer) SyncAll(ctx context.Context) (*PassResult, error) {
	result := s.begin(ModeFull)

	bookmarks, err := s.source.Snapshot(ctx, s.config.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}
	result.Bookmarks = len(bookmarks)

	inv, err := s.dir.Inventory()
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror: %w", err)
	}

	delta := mirror.Diff(bookmarks, inv.Stems())
	s.logger.Printf("Syncing %d new bookmarks, removing %d stale files...", len(delta.ToAdd), len(delta.ToRemove))

	if s.config.Verbose {
		s.logger.Printf("%d bookmarks already synced", len(bookmarks)-len(delta.ToAdd)-len(delta.Duplicates))
	}

	s.reportDuplicates(result, delta.Duplicates)
	s.applyAdditions(ctx, result, delta.ToAdd)
	s.applyRemovals(result, inv, delta.ToRemove)

	return s.finish(result), nil
}

// SyncLatest implements Syncer.SyncLatest.
func (s *syncer) SyncLatest(ctx context.Context) (*PassResult, error) {
	result := s.begin(ModeLatest)

	latest, err := s.source.Latest(ctx, s.config.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest bookmark: %w", err)
	}

	inv, err := s.dir.Inventory()
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror: %w", err)
	}

	if latest != nil {
		result.Bookmarks = 1
		delta := mirror.Diff([]bookmark.Bookmark{*latest}, inv.Stems())
		if len(delta.ToAdd) == 0 && s.config.Verbose {
			s.logger.Printf("Latest bookmark %q already synced", latest.Title)
		}
		s.applyAdditions(ctx, result, delta.ToAdd)
	}

	return s.finish(result), nil
}

// Plan implements Syncer.Plan.
func (s *syncer) Plan(ctx context.Context) (*Plan, error) {
	bookmarks, err := s.source.Snapshot(ctx, s.config.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	inv, err := s.dir.Inventory()
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror: %w", err)
	}

	return &Plan{
		Bookmarks: bookmarks,
		Files:     inv.Len(),
		Delta:     mirror.Diff(bookmarks, inv.Stems()),
	}, nil
}

func (s *syncer) begin(mode Mode) *PassResult {
	return &PassResult{
		ID:      uuid.NewString(),
		Mode:    mode,
		Started: time.Now(),
	}
}

// applyAdditions materializes each bookmark in turn. A failure is recorded
// and the loop moves on; the next full pass will see the title still
// missing and try again.
func (s *syncer) applyAdditions(ctx context.Context, result *PassResult, toAdd []bookmark.Bookmark) {
	for _, b := range toAdd {
		entry, err := s.materializer.Materialize(ctx, b)
		if err != nil {
			s.logger.Printf("Error handling URL %s (%q): %v", b.URL, b.Title, err)
			result.Failed++
			s.record(result, ItemResult{Title: b.Title, URL: b.URL, Action: ActionFailed, Error: err.Error()})
			continue
		}

		result.Added++
		s.record(result, ItemResult{Title: b.Title, URL: b.URL, File: entry.Name, Action: ActionAdded})
	}
}

// applyRemovals deletes the file for each stem with no bookmark.
func (s *syncer) applyRemovals(result *PassResult, inv *mirror.Inventory, toRemove []string) {
	for _, stem := range toRemove {
		name, err := s.dir.Remove(inv, stem, s.logger)
		if err != nil {
			s.logger.Printf("Error removing %q: %v", stem, err)
			result.Failed++
			s.record(result, ItemResult{Title: stem, Action: ActionFailed, Error: err.Error()})
			continue
		}

		s.logger.Printf("Removed: %s", name)
		result.Removed++
		s.record(result, ItemResult{Title: stem, File: name, Action: ActionRemoved})
	}
}

func (s *syncer) reportDuplicates(result *PassResult, dups []bookmark.Bookmark) {
	result.Duplicates = len(dups)
	for _, b := range dups {
		s.logger.Printf("Warning: skipping %s, title %q is already used by an earlier bookmark", b.URL, b.Title)
	}
}

func (s *syncer) record(result *PassResult, item ItemResult) {
	result.Items = append(result.Items, item)
	if s.config.Notifier != nil {
		s.config.Notifier.OnItem(result.ID, item)
	}
}

func (s *syncer) finish(result *PassResult) *PassResult {
	result.Duration = time.Since(result.Started)

	s.logger.Printf("Bookmark sync completed (%s): added=%d removed=%d failed=%d in %v",
		result.Mode, result.Added, result.Removed, result.Failed, result.Duration.Round(time.Millisecond))

	if s.config.Verbose {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		s.logger.Printf("Memory: heap=%s sys=%s gc=%d",
			humanize.Bytes(mem.HeapAlloc), humanize.Bytes(mem.Sys), mem.NumGC)
	}

	if s.config.Notifier != nil {
		s.config.Notifier.OnPass(*result)
	}
	return result
}
