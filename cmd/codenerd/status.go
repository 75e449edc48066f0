package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codenerd/internal/layout"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print profiles, sessions, and agent directory state",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := layout.New(agentDir)

		fmt.Printf("agent directory: %s\n", dir.Dir())
		if _, err := os.Stat(dir.Dir()); os.IsNotExist(err) {
			fmt.Println("  (not initialized; run \"codenerd start\")")
		}

		fmt.Printf("\nprofiles (default: %s):\n", appConfig.DefaultProfile)
		for name, profile := range appConfig.Profiles {
			marker := " "
			if name == appConfig.DefaultProfile {
				marker = "*"
			}
			fmt.Printf("  %s %-12s mode=%s\n", marker, name, profile.Mode)
		}

		sessions := dir.ListSessions()
		fmt.Printf("\nsessions (%d):\n", len(sessions))
		for _, id := range sessions {
			fmt.Printf("  %s\n", id)
		}
		if len(sessions) == 0 {
			fmt.Println("  (none)")
		}

		return nil
	},
}
