// Package sync keeps the mirror directory in line with the bookmark folder.
package sync

import (
	"context"
	"time"

	"github.com/bookmirror/bookmirror/internal/bookmark"
)

// Syncer runs sync passes.
//
// A pass reads a snapshot of the bookmark folder, lists the mirror
// directory, diffs the two and applies the result. Individual bookmark
// failures are logged and counted but never stop the pass; only failures to
// read the snapshot or the directory abort it.
type Syncer interface {
	// SyncAll reconciles the mirror with the whole folder: missing files are
	// materialized and files without a bookmark are removed.
	//
	// Example:
	//   result, err := syncer.SyncAll(ctx)
	SyncAll(ctx context.Context) (*PassResult, error)

	// SyncLatest materializes the most recently added bookmark if its file is
	// missing. It never removes files, since removal needs the full folder.
	//
	// This is the fast path for a single change between polls.
	SyncLatest(ctx context.Context) (*PassResult, error)

	// Plan computes what SyncAll would do without touching the directory.
	Plan(ctx context.Context) (*Plan, error)
}

// Source provides bookmark snapshots. *places.Source implements it.
type Source interface {
	Snapshot(ctx context.Context, folder string) ([]bookmark.Bookmark, error)
	Latest(ctx context.Context, folder string) (*bookmark.Bookmark, error)
}

// Notifier receives pass outcomes as they happen.
type Notifier interface {
	OnItem(passID string, item ItemResult)
	OnPass(result PassResult)
}

// Mode identifies the kind of pass.
type Mode string

const (
	// ModeFull reads the whole folder and applies additions and removals.
	ModeFull Mode = "full"
	// ModeLatest reads the newest bookmark only and applies additions.
	ModeLatest Mode = "latest"
)

// Action is what happened to one item during a pass.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
	ActionFailed  Action = "failed"
)

// ItemResult is the outcome for one bookmark or stem.
type ItemResult struct {
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	File   string `json:"file,omitempty"`
	Action Action `json:"action"`
	Error  string `json:"error,omitempty"`
}

// PassResult summarizes one pass.
type PassResult struct {
	ID         string        `json:"id"`
	Mode       Mode          `json:"mode"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	Bookmarks  int           `json:"bookmarks"`
	Added      int           `json:"added"`
	Removed    int           `json:"removed"`
	Failed     int           `json:"failed"`
	Duplicates int           `json:"duplicates"`
	Items      []ItemResult  `json:"items,omitempty"`
}

// Plan is the dry-run view of a full pass.
type Plan struct {
	Bookmarks []bookmark.Bookmark
	Files     int
	Delta     bookmark.Delta
}
