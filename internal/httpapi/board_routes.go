package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clamban/clamban/internal/board"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// boardResponse adds each column's display order to the raw board document:
// by Order ascending everywhere except done, which sorts by updatedAt
// descending.
type boardResponse struct {
	*board.Board
	ColumnOrder map[board.Column][]string `json:"columnOrder"`
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	order := make(map[board.Column][]string, len(board.Columns))
	for _, col := range board.Columns {
		ids := make([]string, 0)
		for _, t := range b.SortedTasksInColumn(col) {
			ids = append(ids, t.ID)
		}
		order[col] = ids
	}
	writeJSON(w, http.StatusOK, boardResponse{Board: b, ColumnOrder: order})
}

// createTaskRequest is the whitelisted body for POST /api/tasks.
type createTaskRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Column      board.Column  `json:"column"`
	Priority    board.Priority `json:"priority"`
	Type        board.Type    `json:"type"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Column == "" {
		req.Column = board.ColumnBacklog
	}

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	now := time.Now()
	t, err := b.NewTask(req.Title, req.Description, req.Column, req.Priority, req.Type, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var u board.TaskUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	t, err := b.UpdateTask(id, u, time.Now())
	if err != nil {
		writeTaskOpError(w, err)
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := b.DeleteTask(id); err != nil {
		writeTaskOpError(w, err)
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	w.WriteHeader(http.StatusNoContent)
}

type addCommentRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req addCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c, err := b.AddComment(id, req.Author, req.Body, time.Now())
	if err != nil {
		writeTaskOpError(w, err)
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	writeJSON(w, http.StatusCreated, c)
}

type addContextRequest struct {
	Path string `json:"path"`
	Note string `json:"note"`
}

func (s *Server) handleAddContext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req addContextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	projectDir := ""
	if b.Meta.Team != nil {
		projectDir = b.Meta.Team.ProjectDir
	}
	entry, err := b.AddContext(id, req.Path, req.Note, projectDir, time.Now())
	if err != nil {
		writeTaskOpError(w, err)
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	writeJSON(w, http.StatusCreated, entry)
}

type addRefRequest struct {
	TaskID string       `json:"taskId"`
	Type   board.RefType `json:"type"`
}

func (s *Server) handleAddRef(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req addRefRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !board.ValidRefType(req.Type) {
		writeError(w, http.StatusBadRequest, "invalid ref type")
		return
	}

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := b.AddRef(id, req.Type, req.TaskID, time.Now()); err != nil {
		writeTaskOpError(w, err)
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	writeJSON(w, http.StatusCreated, b.Tasks[id])
}

func (s *Server) handleRemoveRef(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	target := r.PathValue("target")

	s.boardMu.Lock()
	defer s.boardMu.Unlock()

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := b.RemoveRef(id, target, time.Now()); err != nil {
		writeTaskOpError(w, err)
		return
	}
	if err := s.store.Write(b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.emitBoardChanged()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBulkGetTasks(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if strings.TrimSpace(idsParam) == "" {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	ids := strings.Split(idsParam, ",")

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b.BulkGet(ids))
}

func (s *Server) handleSearchTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	column := board.Column(r.URL.Query().Get("column"))
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	b, err := s.store.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b.Search(q, column, limit))
}

func writeTaskOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrInvalidColumn), errors.Is(err, board.ErrPathEscape), errors.Is(err, board.ErrNoTeam):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
