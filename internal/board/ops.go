package board

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a task id does not exist on the board.
var ErrNotFound = fmt.Errorf("task not found")

// ErrInvalidColumn is returned when a column value is not one of the five
// known ids.
var ErrInvalidColumn = fmt.Errorf("invalid column")

// ErrPathEscape is returned when a context path resolves outside projectDir.
var ErrPathEscape = fmt.Errorf("path escapes project directory")

// ErrNoTeam is returned when a context entry is added without a connected
// team (context paths are resolved relative to the team's projectDir).
var ErrNoTeam = fmt.Errorf("no team connected")

// NewTask creates a task in the given column, assigning the next strictly
// increasing order within that column.
func (b *Board) NewTask(title, description string, column Column, priority Priority, typ Type, now time.Time) (*Task, error) {
	if !ValidColumn(column) {
		return nil, ErrInvalidColumn
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if typ == "" {
		typ = TypeTask
	}
	t := &Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Column:      column,
		Order:       b.nextOrder(column),
		Priority:    priority,
		Type:        typ,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Tasks[t.ID] = t
	return t, nil
}

func (b *Board) nextOrder(column Column) float64 {
	max := 0.0
	found := false
	for _, t := range b.Tasks {
		if t.Column == column && (!found || t.Order > max) {
			max = t.Order
			found = true
		}
	}
	if !found {
		return 1.0
	}
	return max + 1.0
}

// TaskUpdate carries the whitelisted patchable fields; nil means "leave
// unchanged". Grounded on the pockode reference store's pointer-based
// partial-update struct.
type TaskUpdate struct {
	Title       *string
	Description *string
	Column      *Column
	Order       *float64
	Priority    *Priority
	Type        *Type
	Tags        *[]string
	Assignee    *string
}

// UpdateTask applies a whitelisted partial update and bumps updatedAt.
func (b *Board) UpdateTask(id string, u TaskUpdate, now time.Time) (*Task, error) {
	t, ok := b.Tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Column != nil {
		if !ValidColumn(*u.Column) {
			return nil, ErrInvalidColumn
		}
		t.Column = *u.Column
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Order != nil {
		t.Order = *u.Order
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Tags != nil {
		t.Tags = *u.Tags
	}
	if u.Assignee != nil {
		t.Assignee = *u.Assignee
	}
	t.UpdatedAt = now
	return t, nil
}

// DeleteTask removes a task and strips dangling refs from every other task.
func (b *Board) DeleteTask(id string) error {
	if _, ok := b.Tasks[id]; !ok {
		return ErrNotFound
	}
	delete(b.Tasks, id)
	for _, t := range b.Tasks {
		kept := t.Refs[:0]
		for _, r := range t.Refs {
			if r.TaskID != id {
				kept = append(kept, r)
			}
		}
		t.Refs = kept
	}
	return nil
}

// AddComment appends a comment to a task.
func (b *Board) AddComment(id, author, body string, now time.Time) (*Comment, error) {
	t, ok := b.Tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := Comment{ID: uuid.NewString(), Author: author, Body: body, CreatedAt: now}
	t.Comments = append(t.Comments, c)
	t.UpdatedAt = now
	return &c, nil
}

// AddContext appends a file context entry after resolving relPath under
// projectDir and rejecting any path that escapes it.
func (b *Board) AddContext(id, relPath, note, projectDir string, now time.Time) (*ContextEntry, error) {
	t, ok := b.Tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if projectDir == "" {
		return nil, ErrNoTeam
	}
	if filepath.IsAbs(relPath) {
		return nil, ErrPathEscape
	}
	resolved := filepath.Clean(filepath.Join(projectDir, relPath))
	rel, err := filepath.Rel(projectDir, resolved)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, ErrPathEscape
	}
	for _, c := range t.Context {
		if c.Path == resolved {
			return &c, nil
		}
	}
	entry := ContextEntry{Path: resolved, Note: note}
	t.Context = append(t.Context, entry)
	t.UpdatedAt = now
	return &entry, nil
}

// AddRef adds a ref and its inverse on the target task, idempotently.
// Invariant 1: both sides are applied or neither.
func (b *Board) AddRef(fromID string, refType RefType, toID string, now time.Time) error {
	from, ok := b.Tasks[fromID]
	if !ok {
		return ErrNotFound
	}
	to, ok := b.Tasks[toID]
	if !ok {
		return ErrNotFound
	}
	if hasRef(from.Refs, toID, refType) {
		return nil // idempotent
	}
	from.Refs = append(from.Refs, Ref{TaskID: toID, Type: refType})
	to.Refs = append(to.Refs, Ref{TaskID: fromID, Type: refType.Inverse()})
	from.UpdatedAt = now
	to.UpdatedAt = now
	return nil
}

// RemoveRef removes a ref and its inverse on the target task.
func (b *Board) RemoveRef(fromID, toID string, now time.Time) error {
	from, ok := b.Tasks[fromID]
	if !ok {
		return ErrNotFound
	}
	to, ok := b.Tasks[toID]
	if !ok {
		return ErrNotFound
	}
	from.Refs = filterRefs(from.Refs, toID)
	to.Refs = filterRefs(to.Refs, fromID)
	from.UpdatedAt = now
	to.UpdatedAt = now
	return nil
}

func hasRef(refs []Ref, taskID string, typ RefType) bool {
	for _, r := range refs {
		if r.TaskID == taskID && r.Type == typ {
			return true
		}
	}
	return false
}

func filterRefs(refs []Ref, taskID string) []Ref {
	kept := refs[:0]
	for _, r := range refs {
		if r.TaskID != taskID {
			kept = append(kept, r)
		}
	}
	return kept
}

// BulkGet returns tasks for the given ids, in the order requested, skipping
// unknown ids.
func (b *Board) BulkGet(ids []string) []*Task {
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := b.Tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Search does a case-insensitive substring match on title/description/tags,
// optionally filtered by column, capped at limit results.
func (b *Board) Search(q string, column Column, limit int) []*Task {
	q = strings.ToLower(q)
	var out []*Task
	for _, t := range b.Tasks {
		if column != "" && t.Column != column {
			continue
		}
		if matches(t, q) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matches(t *Task, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// SortedTasksInColumn returns a column's tasks in display order: by Order
// ascending for every column except done, which sorts by updatedAt
// descending.
func (b *Board) SortedTasksInColumn(column Column) []*Task {
	var out []*Task
	for _, t := range b.Tasks {
		if t.Column == column {
			out = append(out, t)
		}
	}
	if column == ColumnDone {
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	}
	return out
}
