package board

import (
	"testing"
	"time"

	"github.com/clamban/clamban/internal/paths"
	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	layout := paths.New(dir, dir+"-teams")
	return NewStore(layout)
}

func TestReadMaterializesDefaultBoard(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(b.Columns) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(b.Columns))
	}
	if len(b.Tasks) != 0 {
		t.Fatalf("expected empty tasks, got %d", len(b.Tasks))
	}

	path, err := s.BoardPath()
	if err != nil {
		t.Fatalf("BoardPath: %v", err)
	}
	reread, err := s.Read()
	if err != nil {
		t.Fatalf("second Read: %v", err)
	}
	if diff := cmp.Diff(b.Meta.Name, reread.Meta.Name); diff != "" {
		t.Fatalf("board not stable across reads at %s: %s", path, diff)
	}
}

func TestOrderAssignmentStrictlyIncreasing(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	now := time.Now()
	var orders []float64
	for i := 0; i < 3; i++ {
		task, err := b.NewTask("t", "", ColumnBacklog, "", "", now)
		if err != nil {
			t.Fatalf("NewTask: %v", err)
		}
		orders = append(orders, task.Order)
	}
	for i := 1; i < len(orders); i++ {
		if orders[i] <= orders[i-1] {
			t.Fatalf("orders not strictly increasing: %v", orders)
		}
	}
}

func TestRefSymmetry(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	now := time.Now()
	a, _ := b.NewTask("a", "", ColumnBacklog, "", "", now)
	bb, _ := b.NewTask("b", "", ColumnBacklog, "", "", now)

	if err := b.AddRef(a.ID, RefBlocks, bb.ID, now); err != nil {
		t.Fatalf("AddRef: %v", err)
	}
	if !hasRef(b.Tasks[a.ID].Refs, bb.ID, RefBlocks) {
		t.Fatalf("expected a to have blocks ref to b")
	}
	if !hasRef(b.Tasks[bb.ID].Refs, a.ID, RefBlockedBy) {
		t.Fatalf("expected b to have blocked-by ref to a")
	}

	if err := b.RemoveRef(a.ID, bb.ID, now); err != nil {
		t.Fatalf("RemoveRef: %v", err)
	}
	if len(b.Tasks[a.ID].Refs) != 0 || len(b.Tasks[bb.ID].Refs) != 0 {
		t.Fatalf("expected both sides cleared after RemoveRef")
	}
}

func TestContextPathEscapeRejected(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	now := time.Now()
	task, _ := b.NewTask("t", "", ColumnBacklog, "", "", now)

	if _, err := b.AddContext(task.ID, "../etc/passwd", "", "/tmp/p", now); err != ErrPathEscape {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
	entry, err := b.AddContext(task.ID, "src/a.ts", "", "/tmp/p", now)
	if err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if entry.Path != "/tmp/p/src/a.ts" {
		t.Fatalf("expected resolved path under projectDir, got %s", entry.Path)
	}
}

func TestDeleteTaskStripsDanglingRefs(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	now := time.Now()
	a, _ := b.NewTask("a", "", ColumnBacklog, "", "", now)
	bb, _ := b.NewTask("b", "", ColumnBacklog, "", "", now)
	_ = b.AddRef(a.ID, RefRelated, bb.ID, now)

	if err := b.DeleteTask(a.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if len(b.Tasks[bb.ID].Refs) != 0 {
		t.Fatalf("expected dangling ref stripped, got %v", b.Tasks[bb.ID].Refs)
	}
}

func TestAtomicWriteSurvivesSerialVersions(t *testing.T) {
	s := newTestStore(t)
	b, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for v := 0; v < 50; v++ {
		b.Meta.SchemaVersion = v
		if err := s.Write(b); err != nil {
			t.Fatalf("Write %d: %v", v, err)
		}
		reread, err := s.Read()
		if err != nil {
			t.Fatalf("Read after write %d: %v", v, err)
		}
		if reread.Meta.SchemaVersion < 0 || reread.Meta.SchemaVersion > 49 {
			t.Fatalf("read malformed schema version %d", reread.Meta.SchemaVersion)
		}
	}
}
