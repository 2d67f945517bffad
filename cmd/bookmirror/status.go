package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bookmirror/bookmirror/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "inspect",
	Short:   "Show the source database, the mirror and what a sync would change",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cfg, false)
		if err != nil {
			fail("%v", err)
		}
		defer a.Close()

		const w = 12
		line := func(key, value string) {
			fmt.Printf("%s %s\n", ui.Label(key, w), value)
		}

		fmt.Println(ui.RenderAccent("Source"))
		line("Database:", a.dbPath)
		if info, err := os.Stat(a.dbPath); err == nil {
			line("Size:", humanize.Bytes(uint64(info.Size())))
			line("Modified:", fmt.Sprintf("%s (%s)", info.ModTime().Format(time.DateTime), humanize.Time(info.ModTime())))
		}
		line("Folder:", cfg.Folder)

		fmt.Println()
		fmt.Println(ui.RenderAccent("Mirror"))
		line("Directory:", cfg.OutputDir)

		s, err := a.syncer(nil)
		if err != nil {
			fail("%v", err)
		}
		plan, err := s.Plan(context.Background())
		if err != nil {
			line("State:", ui.RenderFail(err.Error()))
			os.Exit(1)
		}

		line("Bookmarks:", humanize.Comma(int64(len(plan.Bookmarks))))
		line("Files:", humanize.Comma(int64(plan.Files)))

		switch {
		case plan.Delta.Empty():
			line("State:", ui.RenderPass("in sync"))
		default:
			line("State:", ui.RenderWarn(fmt.Sprintf("%d to add, %d to remove", len(plan.Delta.ToAdd), len(plan.Delta.ToRemove))))
		}
		if n := len(plan.Delta.Duplicates); n > 0 {
			line("Duplicates:", ui.RenderWarn(fmt.Sprintf("%d bookmarks share a title with an earlier one", n)))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
