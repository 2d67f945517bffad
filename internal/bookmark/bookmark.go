// Package bookmark defines the records that flow between the places reader,
// the mirror directory and the synchronizer.
package bookmark

import "time"

// Bookmark is one saved URL read from the bookmark folder.
// Title doubles as the file stem in the mirror directory.
type Bookmark struct {
	URL     string
	Title   string
	AddedAt time.Time
}

// Delta is the work needed to bring the mirror directory in line with a snapshot.
// It is computed fresh on every pass and never persisted.
type Delta struct {
	// ToAdd holds bookmarks whose title has no file in the mirror.
	ToAdd []Bookmark

	// ToRemove holds mirror stems with no bookmark of the same title.
	ToRemove []string

	// Duplicates holds bookmarks skipped because an earlier row had the same title.
	Duplicates []Bookmark
}

// Empty reports whether the delta requires no file-system changes.
func (d Delta) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Titles returns the set of titles in bs.
func Titles(bs []Bookmark) map[string]bool {
	titles := make(map[string]bool, len(bs))
	for _, b := range bs {
		titles[b.Title] = true
	}
	return titles
}
