package logtail

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestTailReturnsLastNLines(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "team.log"))
	for i := 0; i < 10; i++ {
		if err := s.Append(fmt.Sprintf("line-%d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	lines, err := s.Tail(3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	want := []string{"line-7", "line-8", "line-9"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, lines)
		}
	}
}

func TestTailCapsAtMax(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "team.log"))
	if err := s.Append("only line"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	lines, err := s.Tail(100000)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
}

func TestTailOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "nope.log"))
	lines, err := s.Tail(10)
	if err != nil {
		t.Fatalf("Tail on missing file: %v", err)
	}
	if lines != nil {
		t.Fatalf("expected nil lines, got %v", lines)
	}
}
