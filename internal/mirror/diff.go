package mirror

import (
	"sort"

	"github.com/bookmirror/bookmirror/internal/bookmark"
)

// Diff computes the additions and removals that bring a directory holding
// stems in line with bookmarks.
//
// Titles are assumed unique. When two bookmarks share a title only the first
// one (in snapshot order) is scheduled; the others are reported in
// Delta.Duplicates and never materialized, because once the first file exists
// they look already synced.
func Diff(bookmarks []bookmark.Bookmark, stems map[string]bool) bookmark.Delta {
	var delta bookmark.Delta

	seen := make(map[string]bool, len(bookmarks))
	for _, b := range bookmarks {
		if seen[b.Title] {
			delta.Duplicates = append(delta.Duplicates, b)
			continue
		}
		seen[b.Title] = true

		if !stems[b.Title] {
			delta.ToAdd = append(delta.ToAdd, b)
		}
	}

	for stem := range stems {
		if !seen[stem] {
			delta.ToRemove = append(delta.ToRemove, stem)
		}
	}
	sort.Strings(delta.ToRemove)

	return delta
}
