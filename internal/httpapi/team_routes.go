package httpapi

import (
	"net/http"
	"strconv"

	"github.com/clamban/clamban/internal/board"
	"github.com/clamban/clamban/internal/logtail"
	"github.com/clamban/clamban/internal/supervisor"
)

type teamResponse struct {
	Team       string `json:"team,omitempty"`
	ProjectDir string `json:"projectDir,omitempty"`
	Model      string `json:"model,omitempty"`
	MaxTurns   int    `json:"maxTurns,omitempty"`
	Running    bool   `json:"running"`
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := teamResponse{}
	if b.Meta.Team != nil {
		resp.Team = b.Meta.Team.Name
		resp.ProjectDir = b.Meta.Team.ProjectDir
		resp.Model = b.Meta.Team.Model
		resp.MaxTurns = b.Meta.Team.MaxTurns
	}
	if sup, _ := s.currentSupervisor(); sup != nil {
		resp.Running = sup.IsRunning()
	}
	writeJSON(w, http.StatusOK, resp)
}

type connectTeamRequest struct {
	Name       string `json:"name"`
	ProjectDir string `json:"projectDir"`
	Model      string `json:"model"`
	MaxTurns   int    `json:"maxTurns"`
}

func (s *Server) handleTeamConnect(w http.ResponseWriter, r *http.Request) {
	var req connectTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" || req.ProjectDir == "" {
		writeError(w, http.StatusBadRequest, "name and projectDir are required")
		return
	}

	s.teardownTeam()

	s.boardMu.Lock()
	if err := s.store.SetActiveTeam(req.Name); err != nil {
		s.boardMu.Unlock()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	b, err := s.store.Read()
	if err != nil {
		s.boardMu.Unlock()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	binding := board.TeamBinding{Name: req.Name, ProjectDir: req.ProjectDir, Model: req.Model, MaxTurns: req.MaxTurns}
	b.Meta.Team = &binding
	if err := s.store.Write(b); err != nil {
		s.boardMu.Unlock()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.boardMu.Unlock()

	s.bindTeam(binding)
	s.hub.broadcast("team-changed")
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleTeamDisconnect(w http.ResponseWriter, r *http.Request) {
	s.teardownTeam()

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	if err := s.store.SetActiveTeam(""); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	b.Meta.Team = nil
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.broadcast("team-changed")
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleTeamStart(w http.ResponseWriter, r *http.Request) {
	sup, _ := s.currentSupervisor()
	if sup == nil {
		writeError(w, http.StatusBadRequest, "no team connected")
		return
	}
	if sup.IsRunning() {
		writeError(w, http.StatusConflict, "team already running")
		return
	}

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if b.Meta.Team == nil {
		writeError(w, http.StatusBadRequest, "no team connected")
		return
	}

	team := *b.Meta.Team
	onExit := func() { s.hub.broadcast("team-changed") }
	sup.Start(teamToCycleConfig(team), onExit)
	s.hub.broadcast("team-changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTeamStop(w http.ResponseWriter, r *http.Request) {
	sup, _ := s.currentSupervisor()
	if sup == nil {
		writeError(w, http.StatusBadRequest, "no team connected")
		return
	}
	sup.Stop()
	s.hub.broadcast("team-changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTeamLogs(w http.ResponseWriter, r *http.Request) {
	_, team := s.currentSupervisor()
	if team == "" {
		writeError(w, http.StatusBadRequest, "no team connected")
		return
	}
	lines := logtail.MaxTailLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			lines = n
		}
	}
	if lines <= 0 || lines > logtail.MaxTailLines {
		lines = logtail.MaxTailLines
	}

	store := logtail.New(s.layout.LogPath(team))
	out, err := store.Tail(lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAvailableTeams(w http.ResponseWriter, r *http.Request) {
	names, err := s.layout.AvailableTeams()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// teamToCycleConfig builds the per-cycle config a supervisor Start call needs
// from the board's team binding. The prompt text itself is out of scope
// out of scope here; this is a minimal, stable instruction pointing the
// agent at the board API it mutates through.
func teamToCycleConfig(team board.TeamBinding) supervisor.CycleConfig {
	return supervisor.CycleConfig{
		Model:      team.Model,
		ProjectDir: team.ProjectDir,
		Prompt:     defaultPrompt(team.Name),
	}
}

func defaultPrompt(team string) string {
	return "You are the lead agent for team " + team + ". Read the task board via the HTTP API " +
		"at http://localhost, pick up the highest-priority task in ready or in-progress, and work it " +
		"to completion, recording comments and context as you go."
}
