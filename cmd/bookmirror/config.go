package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bookmirror/bookmirror/internal/config"
	"github.com/bookmirror/bookmirror/internal/mirror"
	"github.com/bookmirror/bookmirror/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "inspect",
	Short:   "Create or show the configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a commented config file",
	Annotations: map[string]string{skipConfigLoad: "true"},
	Long: `Write a commented config file to --config (default ~/.bookmirror/config.yaml).

On a terminal the main settings are asked for interactively; pass --defaults
to write the defaults without asking.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		defaults, _ := cmd.Flags().GetBool("defaults")

		if _, err := os.Stat(configPath); err == nil && !force {
			fail("%s already exists (use --force to overwrite)", configPath)
		}

		c := config.DefaultConfig()
		if !defaults && term.IsTerminal(int(os.Stdin.Fd())) {
			if err := askConfig(c); err != nil {
				fail("%v", err)
			}
		}

		if err := c.Validate(); err != nil {
			fail("%v", err)
		}
		if err := c.WriteDefault(configPath); err != nil {
			fail("failed to write config: %v", err)
		}
		fmt.Printf("%s %s\n", ui.RenderPass("Wrote"), configPath)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging the config file, BOOKMIRROR_*
environment variables and defaults.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		if err := cfg.Encode(os.Stdout, format); err != nil {
			fail("%v", err)
		}
	},
}

// askConfig fills the main settings of c from an interactive form.
func askConfig(c *config.Config) error {
	poll := c.PollInterval.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bookmark folder").
				Description("Folder directly under the bookmarks toolbar").
				Value(&c.Folder),
			huh.NewInput().
				Title("Output directory").
				Description("Created if missing").
				Value(&c.OutputDir),
			huh.NewSelect[string]().
				Title("Shortcut format").
				Options(
					huh.NewOption("webloc (macOS)", mirror.FormatWebloc),
					huh.NewOption("url (Windows)", mirror.FormatURL),
				).
				Value(&c.ShortcutFormat),
			huh.NewInput().
				Title("Poll interval").
				Value(&poll).
				Validate(func(s string) error {
					_, err := config.ParseDuration(s)
					return err
				}),
			huh.NewConfirm().
				Title("Add only the newest bookmark on each change?").
				Description("Faster; deletions wait for the next full pass").
				Value(&c.FastPath),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	d, err := config.ParseDuration(poll)
	if err != nil {
		return err
	}
	c.PollInterval = d
	return nil
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	configInitCmd.Flags().Bool("defaults", false, "Write defaults without asking")
	configShowCmd.Flags().String("format", "yaml", "Output format: yaml or toml")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
