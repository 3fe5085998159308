// Package board implements the atomically-persisted board document: the
// consistency boundary shared by the HTTP API, the browser, and the agent.
package board

import "time"

// Column is one of the five fixed board columns.
type Column string

const (
	ColumnBacklog    Column = "backlog"
	ColumnReady      Column = "ready"
	ColumnInProgress Column = "in-progress"
	ColumnReview     Column = "review"
	ColumnDone       Column = "done"
)

// Columns is the fixed ordered sequence every board carries.
var Columns = []Column{ColumnBacklog, ColumnReady, ColumnInProgress, ColumnReview, ColumnDone}

// ValidColumn reports whether c is one of the five known columns.
func ValidColumn(c Column) bool {
	for _, known := range Columns {
		if known == c {
			return true
		}
	}
	return false
}

// Priority is the task urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Type is the kind of work a task represents.
type Type string

const (
	TypeTask    Type = "task"
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeChore   Type = "chore"
)

// RefType is a typed, symmetric link between two tasks. Every RefType has a
// mirrored inverse recorded on the target task.
type RefType string

const (
	RefRelated   RefType = "related"
	RefBlocks    RefType = "blocks"
	RefBlockedBy RefType = "blocked-by"
	RefParent    RefType = "parent"
	RefChild     RefType = "child"
)

// Inverse returns the mirrored ref type recorded on the target task.
func (t RefType) Inverse() RefType {
	switch t {
	case RefRelated:
		return RefRelated
	case RefBlocks:
		return RefBlockedBy
	case RefBlockedBy:
		return RefBlocks
	case RefParent:
		return RefChild
	case RefChild:
		return RefParent
	default:
		return t
	}
}

// ValidRefType reports whether t is one of the five known ref types a client
// may request when creating a ref; the inverse forms (blocked-by, child) are
// accepted too, and the store records their own inverse on the target.
func ValidRefType(t RefType) bool {
	switch t {
	case RefRelated, RefBlocks, RefBlockedBy, RefParent, RefChild:
		return true
	default:
		return false
	}
}

// Ref is one side of a symmetric link between two tasks.
type Ref struct {
	TaskID string  `json:"taskId"`
	Type   RefType `json:"type"`
}

// Comment is an append-only entry on a task.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContextEntry is a file reference attached to a task, resolved and
// validated against the team's projectDir before being stored.
type ContextEntry struct {
	Path string `json:"path"`
	Note string `json:"note,omitempty"`
}

// Task is one card on the board.
type Task struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Column      Column         `json:"column"`
	Order       float64        `json:"order"`
	Priority    Priority       `json:"priority"`
	Type        Type           `json:"type"`
	Tags        []string       `json:"tags,omitempty"`
	Assignee    string         `json:"assignee,omitempty"`
	Comments    []Comment      `json:"comments,omitempty"`
	Context     []ContextEntry `json:"context,omitempty"`
	Refs        []Ref          `json:"refs,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TeamBinding is the optional team configuration recorded in board.meta.
type TeamBinding struct {
	Name       string `json:"name"`
	ProjectDir string `json:"projectDir"`
	Model      string `json:"model,omitempty"`
	MaxTurns   int    `json:"maxTurns,omitempty"`
}

// Meta is the board's identity and, when a team is connected, its binding.
type Meta struct {
	Name          string       `json:"name"`
	CreatedAt     time.Time    `json:"createdAt"`
	SchemaVersion int          `json:"schemaVersion"`
	Team          *TeamBinding `json:"team,omitempty"`
}

const CurrentSchemaVersion = 1

// Board is the single JSON document holding all tasks, columns, and team
// binding for one team (or the fallback board when no team is connected).
type Board struct {
	Meta    Meta             `json:"meta"`
	Columns []Column         `json:"columns"`
	Tasks   map[string]*Task `json:"tasks"`
}

// NewBoard returns a fresh default board: fixed columns, no tasks, no team.
func NewBoard(name string, now time.Time) *Board {
	return &Board{
		Meta: Meta{
			Name:          name,
			CreatedAt:     now,
			SchemaVersion: CurrentSchemaVersion,
		},
		Columns: append([]Column(nil), Columns...),
		Tasks:   make(map[string]*Task),
	}
}
