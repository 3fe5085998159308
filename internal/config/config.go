// Package config loads the server's own clamban.toml: listen address, data
// directory overrides, and the [supervisor] section's debounce/crash-guard
// overrides for the Cycle Supervisor's timing windows.
//
// Uses a struct-of-TOML-tags shape with a Load/setDefaults/validate
// sequence. An earlier revision of this package also carried a
// file-watching hot-reload; that is dropped (see DESIGN.md) since nothing
// in this server reloads its own startup config at runtime.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the server's own configuration document.
type Config struct {
	Listen     ListenConfig     `toml:"listen"`
	Data       DataConfig       `toml:"data"`
	Turns      TurnsConfig      `toml:"turns"`
	Supervisor SupervisorConfig `toml:"supervisor"`
}

// ListenConfig is the local HTTP listener address.
type ListenConfig struct {
	Addr string `toml:"addr"`
}

// DataConfig overrides the default ~/.clamban and ~/.claude/teams roots.
type DataConfig struct {
	BaseDir      string `toml:"base_dir"`
	TeamsRootDir string `toml:"teams_root_dir"`
}

// TurnsConfig is the default per-team turn budget used when a team connects
// without an explicit maxTurns override.
type TurnsConfig struct {
	DefaultMaxTurns int `toml:"default_max_turns"`
}

// SupervisorConfig overrides the Cycle Supervisor's debounce/crash-guard
// windows. Zero fields fall back to supervisor.DefaultTiming(); a deployment
// under test can shrink every window to milliseconds instead of the
// production multi-second defaults.
type SupervisorConfig struct {
	IdleDebounceMS    int `toml:"idle_debounce_ms"`
	RespawnDebounceMS int `toml:"respawn_debounce_ms"`
	CrashGuardMS      int `toml:"crash_guard_ms"`
	KillEscalationMS  int `toml:"kill_escalation_ms"`
}

// Load reads and validates path, a TOML document, filling in defaults for
// anything left unset. A missing file is not an error: the zero Config with
// defaults applied is returned, matching the "binds to a local port, no
// required configuration" posture.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			setDefaults(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Listen.Addr == "" {
		cfg.Listen.Addr = "127.0.0.1:8420"
	}
	if cfg.Turns.DefaultMaxTurns == 0 {
		cfg.Turns.DefaultMaxTurns = 200
	}
}

func validate(cfg *Config) error {
	if cfg.Listen.Addr == "" {
		return fmt.Errorf("listen.addr is required")
	}
	if cfg.Turns.DefaultMaxTurns < 0 {
		return fmt.Errorf("turns.default_max_turns must be >= 0")
	}
	sv := cfg.Supervisor
	if sv.IdleDebounceMS < 0 || sv.RespawnDebounceMS < 0 || sv.CrashGuardMS < 0 || sv.KillEscalationMS < 0 {
		return fmt.Errorf("supervisor.*_ms values must be >= 0")
	}
	return nil
}
