package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codenerd/internal/agentsession"
	"codenerd/internal/layout"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Initialize .agent/ and create a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := layout.New(agentDir)
		if err := dir.EnsureDirs(); err != nil {
			return fmt.Errorf("initialize agent directory: %w", err)
		}

		sess, err := agentsession.Start(dir, cliLogger)
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		defer sess.Close()

		if err := dir.EnsureSessionDirs(sess.Id()); err != nil {
			return fmt.Errorf("initialize session directory: %w", err)
		}

		fmt.Printf("started session %s in %s\n", sess.Id(), dir.Dir())
		return nil
	},
}
