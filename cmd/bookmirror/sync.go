package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookmirror/bookmirror/internal/mirror"
	"github.com/bookmirror/bookmirror/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one full reconciliation pass",
	Long: `Run one full pass: every bookmark in the folder without a file is
materialized and every file without a bookmark is removed.

With --dry-run nothing is written; the planned additions and removals are
printed instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cfg, !dryRun)
		if err != nil {
			fail("%v", err)
		}
		defer a.Close()

		s, err := a.syncer(nil)
		if err != nil {
			fail("%v", err)
		}
		ctx := context.Background()

		if dryRun {
			plan, err := s.Plan(ctx)
			if err != nil {
				fail("%v", err)
			}
			m, err := a.materializer()
			if err != nil {
				fail("%v", err)
			}

			fmt.Printf("%s %d bookmarks, %d files\n", ui.RenderAccent("Plan:"), len(plan.Bookmarks), plan.Files)
			for _, b := range plan.Delta.ToAdd {
				action := "link"
				if m.Classify(b) == mirror.KindDocument {
					action = "download"
				}
				fmt.Printf("  %s %s (%s)\n", ui.RenderPass("+"), b.Title, action)
			}
			for _, stem := range plan.Delta.ToRemove {
				fmt.Printf("  %s %s\n", ui.RenderFail("-"), stem)
			}
			for _, b := range plan.Delta.Duplicates {
				fmt.Printf("  %s %s (duplicate title, skipped)\n", ui.RenderWarn("!"), b.Title)
			}
			if plan.Delta.Empty() {
				fmt.Println(ui.RenderMuted("  nothing to do"))
			}
			return
		}

		result, err := s.SyncAll(ctx)
		if err != nil {
			fail("%v", err)
		}

		summary := fmt.Sprintf("added %d, removed %d, failed %d", result.Added, result.Removed, result.Failed)
		if result.Failed > 0 {
			fmt.Println(ui.RenderWarn(summary))
		} else {
			fmt.Println(ui.RenderPass(summary))
		}
	},
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "Print the planned changes without applying them")
	rootCmd.AddCommand(syncCmd)
}
