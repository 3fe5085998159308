// Package cliutil holds terminal styling and table rendering shared by the
// cmd/clamban subcommands.
//
// Grounded on kylesnowschwartz-tail-claude's theme.go (AdaptiveColor palette,
// dark/light aware) and cmd/madflow/main.go's roleColors/printColoredMessage
// (role-prefix-to-color lookup for chatlog-style output), replaced here with
// the lipgloss v2 API and generalized from chatlog roles to cycle-log event
// kinds. Table rendering is grounded on hashmap-kz-katomik/internal/printer's
// column-aligned status output, reimplemented with aquasecurity/table.
package cliutil

import (
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/aquasecurity/table"
)

var (
	colorSession = lipgloss.AdaptiveColor{Light: "4", Dark: "69"}
	colorAssist  = lipgloss.AdaptiveColor{Light: "0", Dark: "252"}
	colorResult  = lipgloss.AdaptiveColor{Light: "2", Dark: "76"}
	colorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "196"}
	colorRaw     = lipgloss.AdaptiveColor{Light: "8", Dark: "243"}

	stylSession = lipgloss.NewStyle().Foreground(colorSession)
	stylAssist  = lipgloss.NewStyle().Foreground(colorAssist)
	stylResult  = lipgloss.NewStyle().Foreground(colorResult)
	stylError   = lipgloss.NewStyle().Foreground(colorError)
	stylRaw     = lipgloss.NewStyle().Foreground(colorRaw)
)

// ColorizeLogLine applies role-style coloring to one cycle-log line, keyed
// by its "[cycle] <kind>" prefix, the way printColoredMessage keys off a
// chatlog sender prefix.
func ColorizeLogLine(line string) string {
	switch {
	case strings.Contains(line, "session="):
		return stylSession.Render(line)
	case strings.Contains(line, "assistant:"):
		return stylAssist.Render(line)
	case strings.Contains(line, "result "):
		return stylResult.Render(line)
	case strings.Contains(line, "exited:"), strings.Contains(line, "scanner error"):
		return stylError.Render(line)
	default:
		return stylRaw.Render(line)
	}
}

// StatusTable renders a two-column key/value status block (team, running,
// turns used, etc.) to stdout.
func StatusTable(rows [][2]string) {
	t := table.New(os.Stdout)
	t.SetHeaders("FIELD", "VALUE")
	for _, r := range rows {
		t.AddRow(r[0], r[1])
	}
	t.Render()
}

// TeamListTable renders the list of available external teams with their
// connected/running markers.
func TeamListTable(names []string, active string, running bool) {
	t := table.New(os.Stdout)
	t.SetHeaders("TEAM", "CONNECTED", "RUNNING")
	for _, name := range names {
		connected := ""
		runningStr := ""
		if name == active {
			connected = "*"
			if running {
				runningStr = "yes"
			} else {
				runningStr = "no"
			}
		}
		t.AddRow(name, connected, runningStr)
	}
	t.Render()
}
