package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clamban/clamban/internal/cliutil"
)

var (
	logsLines  int
	logsFollow bool
)

func init() {
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 20, "number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "poll for new lines after printing")
	rootCmd.AddCommand(logsCmd)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the connected team's cycle log",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		seen := 0
		for {
			var lines []string
			if err := client.get(fmt.Sprintf("/api/team/logs?lines=%d", maxInt(logsLines, seen+logsLines)), &lines); err != nil {
				return err
			}
			for _, l := range lines[seen:] {
				fmt.Println(cliutil.ColorizeLogLine(l))
			}
			seen = len(lines)
			if !logsFollow {
				return nil
			}
			time.Sleep(time.Second)
		}
	},
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
