// sse.go is the SSE hub: a set of open response writers fed by
// broadcast({type}). Grounded on the activeStream/streamSubscriber shape in
// other_examples' govega serve package — history-less here, since
// only asks for a "connected" push on upgrade, not event replay.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// sseEvent is the one JSON shape every SSE frame carries.
type sseEvent struct {
	Type string `json:"type"`
}

// hub fans board-changed/team-changed events out to every connected client.
type hub struct {
	mu          sync.Mutex
	subscribers map[chan sseEvent]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[chan sseEvent]struct{})}
}

func (h *hub) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan sseEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// broadcast writes event to every connected subscriber; a slow subscriber is
// skipped rather than blocking the broadcaster.
func (h *hub) broadcast(eventType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := sseEvent{Type: eventType}
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// handleEvents upgrades the connection to text/event-stream and pushes a
// "connected" frame immediately.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	if err := writeFrame(w, sseEvent{Type: "connected"}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeFrame(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeFrame(w http.ResponseWriter, ev sseEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[httpapi] marshal sse event: %v", err)
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
