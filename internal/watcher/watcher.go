// Package watcher implements the Resilient Watcher: a
// filesystem watcher that survives the watched directories being deleted
// out from under it, self-healing via a heartbeat timer.
//
// Grounded on kylesnowschwartz-tail-claude's watcher.go: an fsnotify loop
// with debounce timers, where a mutex guards only the timers and all data
// processing happens on a single goroutine.
package watcher

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures a ResilientWatcher. Zero HeartbeatTimeout disables the
// self-healing heartbeat.
type Config struct {
	Directories       []string
	OnChange          func()
	HeartbeatTimeout  time.Duration
	Recursive         bool
}

// ResilientWatcher watches a set of directories for change events and
// tolerates them disappearing and reappearing.
type ResilientWatcher struct {
	cfg Config

	mu          sync.Mutex // guards only the timer and lifecycle fields below
	heartbeat   *time.Timer
	stopped     bool
	done        chan struct{}
	reinitCount int

	fsWatcher *fsnotify.Watcher
}

// New constructs a ResilientWatcher. Call Start to begin watching.
func New(cfg Config) *ResilientWatcher {
	if cfg.OnChange == nil {
		cfg.OnChange = func() {}
	}
	return &ResilientWatcher{cfg: cfg, done: make(chan struct{})}
}

// ReinitCount reports how many times the watcher has had to recreate a
// vanished directory and resubscribe.
func (w *ResilientWatcher) ReinitCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reinitCount
}

// Start ensures every configured directory exists, subscribes to change
// events, and (if HeartbeatTimeout > 0) arms the self-healing heartbeat.
// Start spawns a goroutine and returns immediately.
func (w *ResilientWatcher) Start() error {
	if err := w.ensureDirs(); err != nil {
		return err
	}
	fsw, err := w.subscribe()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.fsWatcher = fsw
	if w.cfg.HeartbeatTimeout > 0 {
		w.heartbeat = time.AfterFunc(w.cfg.HeartbeatTimeout, w.onHeartbeatExpired)
	}
	w.mu.Unlock()

	go w.run(fsw)
	return nil
}

func (w *ResilientWatcher) ensureDirs() error {
	for _, d := range w.cfg.Directories {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// subscribe creates a new fsnotify watcher and adds every configured
// directory (and, if Recursive, every subdirectory beneath it — fsnotify has
// no native recursive mode, so this walks the tree manually).
func (w *ResilientWatcher) subscribe() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range w.cfg.Directories {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, err
		}
		if w.cfg.Recursive {
			for _, sub := range listSubdirs(d) {
				_ = fsw.Add(sub) // best-effort: a racing delete here is not fatal
			}
		}
	}
	return fsw, nil
}

func listSubdirs(root string) []string {
	var subs []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() {
			full := root + string(os.PathSeparator) + e.Name()
			subs = append(subs, full)
			subs = append(subs, listSubdirs(full)...)
		}
	}
	return subs
}

func (w *ResilientWatcher) run(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			_ = event
			w.resetHeartbeat()
			w.safeOnChange()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] fsnotify error: %v", err)
		}
	}
}

// safeOnChange invokes OnChange, catching any panic so a misbehaving
// callback cannot kill the watcher goroutine ("exceptions thrown
// by onChange are caught and dropped").
func (w *ResilientWatcher) safeOnChange() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[watcher] onChange panicked: %v", r)
		}
	}()
	w.cfg.OnChange()
}

func (w *ResilientWatcher) resetHeartbeat() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.cfg.HeartbeatTimeout <= 0 {
		return
	}
	if w.heartbeat != nil {
		w.heartbeat.Stop()
	}
	w.heartbeat = time.AfterFunc(w.cfg.HeartbeatTimeout, w.onHeartbeatExpired)
}

// Heartbeat manually resets the heartbeat timer, as if an event had fired.
func (w *ResilientWatcher) Heartbeat() {
	w.resetHeartbeat()
}

// onHeartbeatExpired tears down all subscriptions, recreates any missing
// directories, resubscribes, and restarts the heartbeat. This is what lets
// the watcher survive a directory being deleted out from under it.
func (w *ResilientWatcher) onHeartbeatExpired() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	old := w.fsWatcher
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}

	if err := w.ensureDirs(); err != nil {
		log.Printf("[watcher] reinit: recreate dirs failed: %v", err)
	}
	fsw, err := w.subscribe()
	if err != nil {
		log.Printf("[watcher] reinit: resubscribe failed: %v", err)
		// Try again on the next heartbeat window rather than giving up.
		w.mu.Lock()
		if !w.stopped {
			w.heartbeat = time.AfterFunc(w.cfg.HeartbeatTimeout, w.onHeartbeatExpired)
		}
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		fsw.Close()
		return
	}
	w.fsWatcher = fsw
	w.reinitCount++
	w.heartbeat = time.AfterFunc(w.cfg.HeartbeatTimeout, w.onHeartbeatExpired)
	w.mu.Unlock()

	go w.run(fsw)
}

// Stop is idempotent and synchronously cancels timers and subscriptions;
// post-stop heartbeat timers do not fire.
func (w *ResilientWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	if w.heartbeat != nil {
		w.heartbeat.Stop()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	close(w.done)
}
