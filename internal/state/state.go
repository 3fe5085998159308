// Package state persists per-team supervisor state (leadPid, startedAt,
// stoppedAt) to survive a process restart, and provides PID-liveness
// probes used by the supervisor's running-check.
//
// Grounded on internal/team/team.go's Manager.save atomic-write idiom.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// TeamState is the persisted shape of state/<team>.json.
type TeamState struct {
	LeadPID   int       `json:"leadPid"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	StoppedAt time.Time `json:"stoppedAt,omitempty"`
}

// Store reads and atomically writes per-team state files under a directory.
type Store struct {
	pathFor func(team string) string
}

// New builds a Store using pathFor to resolve each team's state file path.
func New(pathFor func(team string) string) *Store {
	return &Store{pathFor: pathFor}
}

// Read loads a team's persisted state. A missing file returns a zero
// TeamState, not an error.
func (s *Store) Read(team string) (TeamState, error) {
	data, err := os.ReadFile(s.pathFor(team))
	if err != nil {
		if os.IsNotExist(err) {
			return TeamState{}, nil
		}
		return TeamState{}, fmt.Errorf("read team state: %w", err)
	}
	var st TeamState
	if err := json.Unmarshal(data, &st); err != nil {
		return TeamState{}, fmt.Errorf("parse team state: %w", err)
	}
	return st, nil
}

// Write merges fields into the persisted state: a zero-value field in next
// does not reset the existing value, EXCEPT LeadPID, which is only ever
// explicitly set to 0 by the caller to mean "cleared" (handleChildExit and
// Stop both do this deliberately).
func (s *Store) Write(team string, next TeamState) error {
	path := s.pathFor(team)
	cur, _ := s.Read(team)

	merged := cur
	merged.LeadPID = next.LeadPID
	if !next.StartedAt.IsZero() {
		merged.StartedAt = next.StartedAt
	}
	if !next.StoppedAt.IsZero() {
		merged.StoppedAt = next.StoppedAt
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("marshal state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state into place: %w", err)
	}
	return nil
}

// ProcessAlive probes a PID with a no-op signal
// ("use a no-op signal probe... never trust cached handle after a process
// restart").
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Terminate sends SIGTERM to pid.
func Terminate(pid int) {
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Signal(syscall.SIGTERM)
	}
}

// Kill sends an unconditional kill to pid.
func Kill(pid int) {
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Signal(syscall.SIGKILL)
	}
}
