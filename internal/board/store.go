package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clamban/clamban/internal/paths"
)

// activeTeamMarker is the JSON shape of active-team.json.
type activeTeamMarker struct {
	TeamName *string `json:"teamName"`
}

// Store is the atomic, per-active-team board document store (§4.A) composed
// with the Active-Team Registry (§4.G): a single small marker file records
// which team's board is current, so the two are naturally one consistency
// boundary even though they serve distinct purposes.
type Store struct {
	layout *paths.Layout

	mu         sync.Mutex // orders marker read-modify-write; board writes are independently atomic
	activeTeam string     // cached; "" means no team bound
	loaded     bool
}

// NewStore builds a board store rooted at layout.
func NewStore(layout *paths.Layout) *Store {
	return &Store{layout: layout}
}

// GetActiveTeam returns the currently bound team name, or "" if none.
func (s *Store) GetActiveTeam() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getActiveTeamLocked()
}

func (s *Store) getActiveTeamLocked() (string, error) {
	if s.loaded {
		return s.activeTeam, nil
	}
	data, err := os.ReadFile(s.layout.ActiveTeamPath())
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return "", nil
		}
		return "", fmt.Errorf("read active-team marker: %w", err)
	}
	var marker activeTeamMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return "", fmt.Errorf("parse active-team marker: %w", err)
	}
	s.loaded = true
	if marker.TeamName != nil {
		s.activeTeam = *marker.TeamName
	}
	return s.activeTeam, nil
}

// SetActiveTeam binds (name != "") or clears (name == "") the active team,
// persisting the marker atomically so it survives a process restart.
func (s *Store) SetActiveTeam(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.layout.EnsureBase(); err != nil {
		return err
	}

	marker := activeTeamMarker{}
	if name != "" {
		marker.TeamName = &name
	}
	if err := atomicWriteJSON(s.layout.ActiveTeamPath(), marker); err != nil {
		return fmt.Errorf("write active-team marker: %w", err)
	}
	s.activeTeam = name
	s.loaded = true
	return nil
}

// BoardPath resolves the path of the currently active board file.
func (s *Store) BoardPath() (string, error) {
	team, err := s.GetActiveTeam()
	if err != nil {
		return "", err
	}
	if team == "" {
		return s.layout.DefaultBoardPath(), nil
	}
	return s.layout.TeamBoardPath(team), nil
}

// Read loads the active board, materializing a default board on disk if the
// file does not yet exist. Malformed JSON is returned as an error (no
// auto-repair).
func (s *Store) Read() (*Board, error) {
	path, err := s.BoardPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read board: %w", err)
		}
		name, _ := s.GetActiveTeam()
		if name == "" {
			name = "default"
		}
		b := NewBoard(name, time.Now())
		if err := s.Write(b); err != nil {
			return nil, err
		}
		return b, nil
	}

	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse board: %w", err)
	}
	if b.Tasks == nil {
		b.Tasks = make(map[string]*Task)
	}
	return &b, nil
}

// Write persists b atomically: serialize to a sibling temp file, fsync,
// rename over the target. Concurrent readers observe either the prior
// version or the new one, never a partial document.
func (s *Store) Write(b *Board) error {
	path, err := s.BoardPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create board dir: %w", err)
	}
	if err := atomicWriteJSON(path, b); err != nil {
		return fmt.Errorf("write board: %w", err)
	}
	return nil
}

// atomicWriteJSON serializes v to a temp file beside path, fsyncs it, then
// renames it over path. Grounded on internal/team/team.go's Manager.save and
// internal/chatlog/chatlog.go's Truncate, generalized from TOML to JSON.
func atomicWriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
