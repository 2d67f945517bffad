package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	GroupID: "inspect",
	Short:   "Print the places.sqlite the other commands will read",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cfg, false)
		if err != nil {
			fail("%v", err)
		}
		defer a.Close()

		fmt.Println(a.dbPath)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
