package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Addr != "127.0.0.1:8420" {
		t.Fatalf("expected default listen addr, got %q", cfg.Listen.Addr)
	}
	if cfg.Turns.DefaultMaxTurns != 200 {
		t.Fatalf("expected default max turns 200, got %d", cfg.Turns.DefaultMaxTurns)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clamban.toml")
	body := `
[listen]
addr = "0.0.0.0:9000"

[turns]
default_max_turns = 50
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Addr != "0.0.0.0:9000" {
		t.Fatalf("expected overridden addr, got %q", cfg.Listen.Addr)
	}
	if cfg.Turns.DefaultMaxTurns != 50 {
		t.Fatalf("expected overridden max turns, got %d", cfg.Turns.DefaultMaxTurns)
	}
}

func TestLoadRejectsNegativeMaxTurns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clamban.toml")
	if err := os.WriteFile(path, []byte("[turns]\ndefault_max_turns = -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative max turns")
	}
}

func TestLoadOverridesSupervisorTiming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clamban.toml")
	body := `
[supervisor]
idle_debounce_ms = 10
respawn_debounce_ms = 20
crash_guard_ms = 30
kill_escalation_ms = 40
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sv := cfg.Supervisor
	if sv.IdleDebounceMS != 10 || sv.RespawnDebounceMS != 20 || sv.CrashGuardMS != 30 || sv.KillEscalationMS != 40 {
		t.Fatalf("expected supervisor overrides to round-trip, got %+v", sv)
	}
}

func TestLoadRejectsNegativeSupervisorTiming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clamban.toml")
	if err := os.WriteFile(path, []byte("[supervisor]\nidle_debounce_ms = -5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative supervisor timing")
	}
}
