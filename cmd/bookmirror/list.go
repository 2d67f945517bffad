package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "inspect",
	Short:   "List the bookmarks in the mirrored folder",
	Long: `List the bookmarks in the mirrored folder with their sync state.

--since accepts natural language:
  bookmirror list --since "3 days ago"
  bookmirror list --since "last monday"`,
	Run: func(cmd *cobra.Command, args []string) {
		sinceText, _ := cmd.Flags().GetString("since")

		var since time.Time
		if sinceText != "" {
			t, err := parseSince(sinceText, time.Now())
			if err != nil {
				fail("%v", err)
			}
			since = t
		}

		a, err := newApp(cfg, false)
		if err != nil {
			fail("%v", err)
		}
		defer a.Close()

		bookmarks, err := a.source.Snapshot(context.Background(), cfg.Folder)
		if err != nil {
			fail("%v", err)
		}

		// A missing directory lists everything as pending.
		synced := map[string]bool{}
		if inv, err := a.dir.Inventory(); err == nil {
			synced = inv.Stems()
		}

		shown := 0
		for _, b := range filterSince(bookmarks, since) {
			mark := ui.RenderWarn("○")
			if synced[b.Title] {
				mark = ui.RenderPass("●")
			}
			fmt.Printf("%s %s %s\n", mark, b.Title, ui.RenderMuted(fmt.Sprintf("%s · %s", b.URL, humanize.Time(b.AddedAt))))
			shown++
		}
		fmt.Println(ui.RenderMuted(fmt.Sprintf("%d of %d bookmarks", shown, len(bookmarks))))
	},
}

// parseSince reads a natural-language point in time relative to now.
func parseSince(text string, now time.Time) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", text)
	}
	return r.Time, nil
}

// filterSince keeps bookmarks added at or after since. A zero since keeps all.
func filterSince(bookmarks []bookmark.Bookmark, since time.Time) []bookmark.Bookmark {
	if since.IsZero() {
		return bookmarks
	}
	var out []bookmark.Bookmark
	for _, b := range bookmarks {
		if !b.AddedAt.Before(since) {
			out = append(out, b)
		}
	}
	return out
}

func init() {
	listCmd.Flags().String("since", "", "Only show bookmarks added since this time")
	rootCmd.AddCommand(listCmd)
}
