package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clamban/clamban/internal/cliutil"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connected team and whether a cycle is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		var team teamResponse
		if err := client.get("/api/team", &team); err != nil {
			return err
		}
		if team.Team == "" {
			fmt.Println("No team connected.")
			return nil
		}
		rows := [][2]string{
			{"team", team.Team},
			{"projectDir", team.ProjectDir},
			{"model", team.Model},
			{"maxTurns", fmt.Sprintf("%d", team.MaxTurns)},
			{"running", fmt.Sprintf("%v", team.Running)},
		}
		cliutil.StatusTable(rows)
		return nil
	},
}

// teamResponse mirrors internal/httpapi's GET /api/team response shape.
type teamResponse struct {
	Team       string `json:"team"`
	ProjectDir string `json:"projectDir"`
	Model      string `json:"model"`
	MaxTurns   int    `json:"maxTurns"`
	Running    bool   `json:"running"`
}
