package main

import (
	"github.com/spf13/cobra"
)

var (
	apiAddr    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "clamban",
	Short: "Drive an external coding agent around a shared Kanban board",
	Long: `clamban is a local orchestration server: a human edits tasks in a browser,
an agent reads and mutates the same board through an HTTP API, and both
sides see changes propagate in near-real time.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", "127.0.0.1:8420", "clamban server address")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "clamban.toml", "path to clamban.toml")
}
