package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clamban/clamban/internal/cliutil"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage the connected team",
}

var (
	teamProjectDir string
	teamModel      string
	teamMaxTurns   int
)

var teamConnectCmd = &cobra.Command{
	Use:   "connect <name>",
	Short: "Connect a team and switch the active board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		body := map[string]any{
			"name":       args[0],
			"projectDir": teamProjectDir,
			"model":      teamModel,
			"maxTurns":   teamMaxTurns,
		}
		if err := client.post("/api/team/connect", body, nil); err != nil {
			return err
		}
		fmt.Printf("Connected team %q.\n", args[0])
		return nil
	},
}

var teamDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Stop the team if running and clear the team binding",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		if err := client.post("/api/team/disconnect", nil, nil); err != nil {
			return err
		}
		fmt.Println("Disconnected.")
		return nil
	},
}

var teamStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent cycle supervisor for the connected team",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		if err := client.post("/api/team/start", nil, nil); err != nil {
			return err
		}
		fmt.Println("Started.")
		return nil
	},
}

var teamStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the agent cycle supervisor",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		if err := client.post("/api/team/stop", nil, nil); err != nil {
			return err
		}
		fmt.Println("Stopped.")
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams discovered under the external teams directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(apiAddr)
		var names []string
		if err := client.get("/api/teams/available", &names); err != nil {
			return err
		}
		var current teamResponse
		_ = client.get("/api/team", &current)
		cliutil.TeamListTable(names, current.Team, current.Running)
		return nil
	},
}

func init() {
	teamConnectCmd.Flags().StringVar(&teamProjectDir, "project-dir", "", "absolute path to the team's project directory")
	teamConnectCmd.Flags().StringVar(&teamModel, "model", "", "model name passed to the agent process")
	teamConnectCmd.Flags().IntVar(&teamMaxTurns, "max-turns", 0, "turn budget override; 0 uses the server default")
	_ = teamConnectCmd.MarkFlagRequired("project-dir")

	teamCmd.AddCommand(teamConnectCmd, teamDisconnectCmd, teamStartCmd, teamStopCmd, teamListCmd)
	rootCmd.AddCommand(teamCmd)
}
