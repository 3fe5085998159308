// Package httpapi implements the HTTP API + SSE Hub: route
// dispatch over net/http.ServeMux, a JSON codec, and the SSE fan-out hub.
//
// Grounded on the govega serve package for the overall registerRoutes/mux
// shape, and on internal/team/team.go for the team-binding lifecycle this
// wraps.
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clamban/clamban/internal/board"
	"github.com/clamban/clamban/internal/governor"
	"github.com/clamban/clamban/internal/logtail"
	"github.com/clamban/clamban/internal/paths"
	"github.com/clamban/clamban/internal/state"
	"github.com/clamban/clamban/internal/supervisor"
	"github.com/clamban/clamban/internal/watcher"
)

// Server holds every piece of process-wide state the routes need: the board
// store, the SSE hub, and the single connected-team supervisor. There is one
// supervisor singleton per process; multiple concurrently connected teams
// are a non-goal.
type Server struct {
	layout            *paths.Layout
	store             *board.Store
	stateStore        *state.Store
	hub               *hub
	defaultTurnBudget int
	timing            supervisor.Timing

	mu    sync.Mutex // guards the fields below: the team lifecycle
	team  string
	sup   *supervisor.Supervisor
	watch *watcher.ResilientWatcher

	// boardMu serializes the read-modify-write sequence of each mutating
	// route; the board Store's own atomic write only guarantees a reader
	// never observes a torn file, not that two concurrent handlers don't
	// clobber each other's in-memory edit.
	boardMu sync.Mutex
}

// New builds a Server rooted at layout with maxTurns used when a team is
// connected without an explicit override, and timing controlling the
// supervisor's debounce/crash-guard windows.
func New(layout *paths.Layout, defaultTurnBudget int, timing supervisor.Timing) *Server {
	return &Server{
		layout:            layout,
		store:             board.NewStore(layout),
		stateStore:        state.New(layout.StatePath),
		hub:               newHub(),
		defaultTurnBudget: defaultTurnBudget,
		timing:            timing,
	}
}

// Mux assembles the route table. Go's net/http.ServeMux (1.22+) method-and-
// path patterns are used throughout, matching the govega reference's
// registerRoutes shape.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/board", s.handleGetBoard)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/tasks", s.handleBulkGetTasks)
	mux.HandleFunc("GET /api/tasks/search", s.handleSearchTasks)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/comments", s.handleAddComment)
	mux.HandleFunc("POST /api/tasks/{id}/context", s.handleAddContext)
	mux.HandleFunc("POST /api/tasks/{id}/refs", s.handleAddRef)
	mux.HandleFunc("DELETE /api/tasks/{id}/refs/{target}", s.handleRemoveRef)

	mux.HandleFunc("GET /api/team", s.handleGetTeam)
	mux.HandleFunc("POST /api/team/connect", s.handleTeamConnect)
	mux.HandleFunc("POST /api/team/disconnect", s.handleTeamDisconnect)
	mux.HandleFunc("POST /api/team/start", s.handleTeamStart)
	mux.HandleFunc("POST /api/team/stop", s.handleTeamStop)
	mux.HandleFunc("GET /api/team/logs", s.handleTeamLogs)
	mux.HandleFunc("GET /api/teams/available", s.handleAvailableTeams)

	mux.HandleFunc("GET /api/events", s.handleEvents)

	return mux
}

// Run rehydrates the active team (if any), then serves HTTP until ctx is
// cancelled, shutting down gracefully. Grounded on
// internal/orchestrator/orchestrator.go's Run for the errgroup-owned
// subsystem-lifetime shape, generalized from sync.WaitGroup to
// golang.org/x/sync/errgroup.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.rehydrateActiveTeam(); err != nil {
		log.Printf("[httpapi] rehydrate active team: %v", err)
	}

	srv := &http.Server{Addr: addr, Handler: s.Mux()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[httpapi] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.teardownTeam()
	return err
}

// rehydrateActiveTeam reads the persisted active-team marker and board meta
// on startup and reconstructs the supervisor singleton bound to it. It never
// starts a new cycle itself, but bindTeam resumes one already in flight.
func (s *Server) rehydrateActiveTeam() error {
	name, err := s.store.GetActiveTeam()
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}
	b, err := s.store.Read()
	if err != nil {
		return err
	}
	if b.Meta.Team == nil {
		return nil
	}
	s.bindTeam(*b.Meta.Team)
	return nil
}

// bindTeam constructs the supervisor + watcher for a team binding, replacing
// whatever was previously bound. If state/<team>.json names a lead pid that
// is still alive, the supervisor is resumed into RUNNING against that pid
// instead of starting in STOPPED, so a server restart never orphans a
// still-running child or leaves teamActive out of sync with reality.
func (s *Server) bindTeam(binding board.TeamBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxTurns := binding.MaxTurns
	if maxTurns <= 0 {
		maxTurns = s.defaultTurnBudget
	}
	gov := governor.New(governor.Config{MaxTurns: maxTurns})
	logStore := logtail.New(s.layout.LogPath(binding.Name))
	sup := supervisor.New(gov, logStore, s.stateStore, binding.Name, s.timing)

	w := watcher.New(watcher.Config{
		Directories:       []string{s.layout.TeamInboxesDir(binding.Name)},
		HeartbeatTimeout:  10 * time.Second,
		Recursive:         true,
		OnChange: func() {
			s.hub.broadcast("team-changed")
			sup.NotifyBoardChanged()
		},
	})
	if err := w.Start(); err != nil {
		log.Printf("[httpapi] start team watcher: %v", err)
	}

	s.team = binding.Name
	s.sup = sup
	s.watch = w

	if st, err := s.stateStore.Read(binding.Name); err == nil && st.LeadPID != 0 && state.ProcessAlive(st.LeadPID) {
		log.Printf("[httpapi] resuming live lead pid=%d for team %s", st.LeadPID, binding.Name)
		onExit := func() { s.hub.broadcast("team-changed") }
		sup.Resume(teamToCycleConfig(binding), onExit, st.LeadPID, st.StartedAt)
	}
}

// teardownTeam stops any running cycle and watcher for the currently bound
// team. Safe to call when nothing is bound.
func (s *Server) teardownTeam() {
	s.mu.Lock()
	sup, w := s.sup, s.watch
	s.sup, s.watch, s.team = nil, nil, ""
	s.mu.Unlock()

	if sup != nil {
		sup.Stop()
	}
	if w != nil {
		w.Stop()
	}
}

func (s *Server) currentSupervisor() (*supervisor.Supervisor, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup, s.team
}

// emitBoardChanged is called by every mutation route after a successful
// write: it broadcasts the change over SSE and feeds the supervisor's
// debounce input.
func (s *Server) emitBoardChanged() {
	s.hub.broadcast("board-changed")
	if sup, _ := s.currentSupervisor(); sup != nil {
		sup.NotifyBoardChanged()
	}
}
