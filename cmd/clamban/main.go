// Command clamban runs the local orchestration server (or talks to an
// already-running one) that drives an external coding agent around a shared
// Kanban board.
//
// Grounded on cmd/madflow/main.go's command set and signal-driven shutdown,
// restructured onto github.com/spf13/cobra.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
