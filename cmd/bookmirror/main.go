// Command bookmirror mirrors a Firefox bookmark folder into a directory,
// downloading PDFs and writing shortcut files for everything else.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookmirror/bookmirror/internal/config"
	"github.com/bookmirror/bookmirror/internal/ui"
)

// skipConfigLoad marks commands that run without loading the config file,
// so that a broken file can still be replaced.
const skipConfigLoad = "skip-config-load"

var (
	configPath string
	verbose    bool

	// cfg is loaded before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bookmirror",
	Short: "Mirror a Firefox bookmark folder into a synced directory",
	Long: `bookmirror keeps a directory in line with one Firefox bookmark folder.

Each bookmark becomes one file named after its title: links that point at
PDFs are downloaded, everything else is saved as a shortcut (.webloc or
.url). Files whose bookmark was deleted are removed.

Point the output directory at iCloud Drive, Dropbox or any synced folder to
read your bookmarks on other devices.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetOutput(os.Stdout)
		if cmd.Annotations[skipConfigLoad] == "true" {
			return
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if verbose {
			loaded.Verbose = true
		}
		cfg = loaded
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log skipped bookmarks and memory use")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Syncing:"},
		&cobra.Group{ID: "inspect", Title: "Inspecting:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
