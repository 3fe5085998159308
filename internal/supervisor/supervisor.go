// Package supervisor implements the Cycle Supervisor: a finite
// state machine, driven by a single goroutine and a command channel per
// state machine, one per connected team, that spawns and monitors the external agent lead
// process, debounces board changes, and respawns on pending change.
//
// Grounded on internal/orchestrator/orchestrator.go's Run/runAgentWithRestart
// for the goroutine-owns-state shape and crash-guard-by-backoff idiom.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/clamban/clamban/internal/governor"
	"github.com/clamban/clamban/internal/logtail"
	"github.com/clamban/clamban/internal/state"
)

// State is one of the four FSM states the supervisor cycles through.
type State int

const (
	StateStopped State = iota
	StateIdle
	StateRunning
	StatePending
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StatePending:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

const defaultCycleCap = 50

// Timing holds the supervisor's debounce/crash-guard windows. Tests and the
// server's own clamban.toml ([supervisor] section) both override these to
// shrink the real multi-second windows production uses.
type Timing struct {
	IdleDebounce     time.Duration
	RespawnDebounce  time.Duration
	CrashGuardWindow time.Duration
	KillEscalation   time.Duration
}

// DefaultTiming returns the production windows: a 3s idle debounce, a 1s
// respawn debounce, a 5s crash-guard window, and a 5s terminate->kill
// escalation.
func DefaultTiming() Timing {
	return Timing{
		IdleDebounce:     3 * time.Second,
		RespawnDebounce:  1 * time.Second,
		CrashGuardWindow: 5 * time.Second,
		KillEscalation:   5 * time.Second,
	}
}

// event is the sum type driving the supervisor's single goroutine:
// {Start, Stop, BoardChanged, ChildExit, ChildStarted, spawnTimer, Resume}.
type event interface{ isEvent() }

type evStart struct {
	cfg    CycleConfig
	onExit func()
}
type evStop struct{ done chan struct{} }
type evBoardChanged struct{}
type evChildExit struct{ result cycleResult }
type evChildStarted struct{ child *runningChild }
type evSpawnTimer struct{ generation int }
type evResume struct {
	cfg       CycleConfig
	onExit    func()
	pid       int
	startedAt time.Time
}

func (evStart) isEvent()        {}
func (evStop) isEvent()         {}
func (evBoardChanged) isEvent() {}
func (evChildExit) isEvent()    {}
func (evChildStarted) isEvent() {}
func (evSpawnTimer) isEvent()   {}
func (evResume) isEvent()       {}

// Supervisor owns one FSM instance. There is one
// supervisor singleton per process; multiple concurrent teams are a
// non-goal.
type Supervisor struct {
	events chan event

	governor *governor.Governor
	logStore *logtail.Store
	stateDir *state.Store
	team     string
	timing   Timing

	// Fields below are owned exclusively by loop() — no lock needed.
	fsmState   State
	teamActive bool
	pending    bool
	lastSpawn  time.Time
	cfg        CycleConfig
	onExit     func()
	child      *runningChild
	timerGen   int
	ctx        context.Context
	cancel     context.CancelFunc

	// runner launches one cycle; overridable in tests to avoid spawning a
	// real "claude" binary.
	runner func(ctx context.Context, cfg CycleConfig, cycleTurns int, log func(string), onStarted func(*runningChild)) cycleResult
}

// New builds a Supervisor for one team, using gov for its turn budget, log
// for its cycle log, and stateDir to persist lead-pid across restarts.
// Timing controls its debounce/crash-guard windows; pass DefaultTiming() for
// production behavior.
func New(gov *governor.Governor, logStore *logtail.Store, stateDir *state.Store, team string, timing Timing) *Supervisor {
	s := &Supervisor{
		events:   make(chan event, 16),
		governor: gov,
		logStore: logStore,
		stateDir: stateDir,
		team:     team,
		timing:   timing,
		fsmState: StateStopped,
		runner:   runCycle,
	}
	go s.loop()
	return s
}

// Start transitions STOPPED -> RUNNING: resets the governor and spawns the
// first cycle immediately. The team's cycle log is not cleared; the new
// cycle's lines are appended after those of earlier runs.
func (s *Supervisor) Start(cfg CycleConfig, onExit func()) {
	s.events <- evStart{cfg: cfg, onExit: onExit}
}

// Stop cancels the supervisor: clears teamActive/pending, escalates
// terminate-then-kill against any live child, and blocks until done.
func (s *Supervisor) Stop() {
	done := make(chan struct{})
	s.events <- evStop{done: done}
	<-done
}

// NotifyBoardChanged is the board-change notification input.
func (s *Supervisor) NotifyBoardChanged() {
	s.events <- evBoardChanged{}
}

// Resume reconciles a lead process that was already running before this
// server started: pid is a state.TeamState.LeadPID the caller has already
// confirmed is alive via state.ProcessAlive. It brings the FSM to RUNNING
// with teamActive=true without spawning a duplicate child, and starts a
// watcher goroutine that synthesizes a normal evChildExit once the external
// process exits so crash-guard/respawn/governor logic runs unchanged.
func (s *Supervisor) Resume(cfg CycleConfig, onExit func(), pid int, startedAt time.Time) {
	s.events <- evResume{cfg: cfg, onExit: onExit, pid: pid, startedAt: startedAt}
}

// State returns the current FSM state. Safe to call concurrently, but it is
// a dirty read of a field loop() owns; callers needing a definitive
// running/not-running answer should use IsRunning instead, which composes
// in-memory state with persisted PID liveness.
func (s *Supervisor) State() State {
	// fsmState is only ever mutated by loop(); a dirty read here is
	// acceptable for status display (GET /api/team), never for
	// correctness-critical decisions, which all happen inside loop().
	return s.fsmState
}

// IsRunning reports whether a cycle is active: in-memory handle OR a
// persisted PID that is still alive (correct across hot-reloads).
func (s *Supervisor) IsRunning() bool {
	if s.child.alive() {
		return true
	}
	st, err := s.stateDir.Read(s.team)
	if err != nil || st.LeadPID == 0 {
		return false
	}
	return state.ProcessAlive(st.LeadPID)
}

func (s *Supervisor) loop() {
	for ev := range s.events {
		switch e := ev.(type) {
		case evStart:
			s.handleStart(e)
		case evStop:
			s.handleStop()
			close(e.done)
		case evBoardChanged:
			s.handleBoardChanged()
		case evChildExit:
			s.handleChildExit(e.result)
		case evChildStarted:
			s.handleChildStarted(e.child)
		case evSpawnTimer:
			if e.generation == s.timerGen {
				s.spawnCycle()
			}
		case evResume:
			s.handleResume(e)
		}
	}
}

func (s *Supervisor) handleStart(e evStart) {
	s.cfg = e.cfg
	s.onExit = e.onExit
	s.governor.Reset()
	s.teamActive = true
	s.pending = false
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.spawnCycle()
}

func (s *Supervisor) handleStop() {
	s.teamActive = false
	s.pending = false
	s.timerGen++ // invalidate any in-flight debounce timers

	if s.child.alive() {
		s.child.terminate()
		go s.escalateKill(s.child)
	} else {
		// No in-memory handle (process survived a hot-reload): escalate
		// against the persisted PID instead.
		if st, err := s.stateDir.Read(s.team); err == nil && st.LeadPID != 0 {
			state.Terminate(st.LeadPID)
			go func(pid int) {
				time.Sleep(s.timing.KillEscalation)
				if state.ProcessAlive(pid) {
					state.Kill(pid)
				}
			}(st.LeadPID)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	_ = s.stateDir.Write(s.team, state.TeamState{StoppedAt: time.Now()})
	s.fsmState = StateStopped
}

func (s *Supervisor) escalateKill(child *runningChild) {
	time.Sleep(s.timing.KillEscalation)
	if child.alive() {
		child.kill()
	}
}

func (s *Supervisor) handleBoardChanged() {
	if !s.teamActive {
		return
	}
	// A cycle is in flight from spawnCycle on, even before its child handle
	// has arrived via evChildStarted.
	if s.fsmState == StateRunning || s.fsmState == StatePending || s.child.alive() {
		s.pending = true
		if s.fsmState == StateRunning {
			s.fsmState = StatePending
		}
		return
	}
	// IDLE: (re)arm the idle debounce.
	s.timerGen++
	gen := s.timerGen
	time.AfterFunc(s.timing.IdleDebounce, func() {
		s.events <- evSpawnTimer{generation: gen}
	})
}

// spawnCycle is the spawn procedure for a new cycle.
func (s *Supervisor) spawnCycle() {
	cycleTurns := s.governor.AllocateCycleBudget(defaultCycleCap)
	if cycleTurns == 0 {
		s.teamActive = false
		s.fsmState = StateStopped
		s.fireOnExit()
		return
	}

	used := s.governor.Used()
	s.logAppend(fmt.Sprintf("[cycle] start at %s used=%d allocated=%d", time.Now().Format(time.RFC3339), used, cycleTurns))

	s.lastSpawn = time.Now()
	s.pending = false
	s.fsmState = StateRunning

	cfg := s.cfg
	ctx := s.ctx
	go func() {
		result := s.runner(ctx, cfg, cycleTurns, s.logAppend, func(c *runningChild) {
			// Runs on the cycle goroutine, not loop() — route through the
			// event channel so child-handle ownership stays with loop().
			s.events <- evChildStarted{child: c}
		})
		s.events <- evChildExit{result: result}
	}()
}

func (s *Supervisor) handleChildStarted(c *runningChild) {
	s.child = c
	pid := 0
	if c != nil && c.cmd != nil && c.cmd.Process != nil {
		pid = c.cmd.Process.Pid
	}
	_ = s.stateDir.Write(s.team, state.TeamState{LeadPID: pid, StartedAt: s.lastSpawn})
}

func (s *Supervisor) handleChildExit(result cycleResult) {
	s.child = nil
	_ = s.stateDir.Write(s.team, state.TeamState{LeadPID: 0})

	if result.turns > 0 {
		s.governor.RecordTurns(result.turns)
	}

	defer s.fireOnExit()

	if !s.teamActive {
		s.fsmState = StateStopped
		return
	}

	elapsed := time.Since(s.lastSpawn)
	if elapsed < s.timing.CrashGuardWindow {
		log.Printf("[supervisor] child exited within crash-guard window (%v); stopping", elapsed)
		s.teamActive = false
		s.fsmState = StateStopped
		return
	}

	if !s.governor.CanSpawn() {
		s.teamActive = false
		s.fsmState = StateStopped
		return
	}

	if s.pending {
		s.timerGen++
		gen := s.timerGen
		s.fsmState = StateIdle // respawn already decided; awaiting debounce only
		time.AfterFunc(s.timing.RespawnDebounce, func() {
			s.events <- evSpawnTimer{generation: gen}
		})
		return
	}

	s.fsmState = StateIdle
}

// handleResume brings a still-alive pid from a prior process into this
// supervisor's FSM without spawning a second lead process.
func (s *Supervisor) handleResume(e evResume) {
	s.cfg = e.cfg
	s.onExit = e.onExit
	s.teamActive = true
	s.pending = false
	s.lastSpawn = e.startedAt
	s.fsmState = StateRunning
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.child = &runningChild{externalPID: e.pid}

	ctx := s.ctx
	go s.watchExternalChild(ctx, e.pid)
}

// watchExternalChild polls a resumed external lead process for exit and
// injects a synthetic evChildExit once it's gone, so crash-guard, respawn,
// and governor accounting run exactly as they do for an owned child.
func (s *Supervisor) watchExternalChild(ctx context.Context, pid int) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !state.ProcessAlive(pid) {
				// turns/cost are unknown for a process this server never
				// spoke stream-json with; the governor keeps whatever
				// budget it already had before the restart.
				s.events <- evChildExit{result: cycleResult{}}
				return
			}
		}
	}
}

func (s *Supervisor) fireOnExit() {
	if s.onExit != nil {
		s.onExit()
	}
}

func (s *Supervisor) logAppend(line string) {
	if s.logStore == nil {
		return
	}
	if err := s.logStore.Append(line); err != nil {
		log.Printf("[supervisor] log append failed: %v", err)
	}
}
