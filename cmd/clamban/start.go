package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clamban/clamban/internal/config"
	"github.com/clamban/clamban/internal/httpapi"
	"github.com/clamban/clamban/internal/paths"
	"github.com/clamban/clamban/internal/supervisor"
)

func init() {
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the clamban server in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		layout, err := resolveLayout(cfg)
		if err != nil {
			return err
		}
		if err := layout.EnsureBase(); err != nil {
			return fmt.Errorf("ensure data dir: %w", err)
		}

		srv := httpapi.New(layout, cfg.Turns.DefaultMaxTurns, timingFromConfig(cfg.Supervisor))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\nShutting down...")
			cancel()
		}()

		fmt.Printf("clamban listening on %s (data dir %s)\n", cfg.Listen.Addr, layout.Base())
		return srv.Run(ctx, cfg.Listen.Addr)
	},
}

// timingFromConfig translates the TOML [supervisor] millisecond overrides
// into a supervisor.Timing, falling back to supervisor.DefaultTiming() for
// any field left at zero. Kept here rather than in internal/config so that
// package stays free of any internal/supervisor import.
func timingFromConfig(sv config.SupervisorConfig) supervisor.Timing {
	t := supervisor.DefaultTiming()
	if sv.IdleDebounceMS > 0 {
		t.IdleDebounce = time.Duration(sv.IdleDebounceMS) * time.Millisecond
	}
	if sv.RespawnDebounceMS > 0 {
		t.RespawnDebounce = time.Duration(sv.RespawnDebounceMS) * time.Millisecond
	}
	if sv.CrashGuardMS > 0 {
		t.CrashGuardWindow = time.Duration(sv.CrashGuardMS) * time.Millisecond
	}
	if sv.KillEscalationMS > 0 {
		t.KillEscalation = time.Duration(sv.KillEscalationMS) * time.Millisecond
	}
	return t
}

func resolveLayout(cfg *config.Config) (*paths.Layout, error) {
	if cfg.Data.BaseDir != "" || cfg.Data.TeamsRootDir != "" {
		base := cfg.Data.BaseDir
		teamsRoot := cfg.Data.TeamsRootDir
		if base == "" || teamsRoot == "" {
			def, err := paths.NewUnderHome()
			if err != nil {
				return nil, err
			}
			if base == "" {
				base = def.Base()
			}
			if teamsRoot == "" {
				teamsRoot = def.TeamsRoot()
			}
		}
		return paths.New(base, teamsRoot), nil
	}
	return paths.NewUnderHome()
}
