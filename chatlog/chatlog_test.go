package chatlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestBookWriteLayout(t *testing.T) {
	dir := t.TempDir()
	clk := &fakeClock{t: time.Date(2001, 1, 1, 9, 5, 7, 0, time.UTC)}
	b := NewBook(dir)
	b.SetClock(clk.now)
	t.Cleanup(func() { _ = b.CloseAll() })

	if err := b.Open("#Test"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := b.Write("#test", "<nick> hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, "#test", "01-01-01-#test.log")
	if got := b.Path("#TEST", clk.t); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
	if got := readFile(t, path); got != "01-01-01 09:05:07 <nick> hello\n" {
		t.Errorf("log contents = %q", got)
	}
}

func TestBookWriteBeforeOpen(t *testing.T) {
	b := NewBook(t.TempDir())
	err := b.Write("#nowhere", "text")
	if !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Write() error = %v, want ErrNotOpen", err)
	}
}

func TestBookRotatesOnNewDay(t *testing.T) {
	dir := t.TempDir()
	clk := &fakeClock{t: time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)}
	b := NewBook(dir)
	b.SetClock(clk.now)
	rotations := 0
	b.OnRotate = func() { rotations++ }
	t.Cleanup(func() { _ = b.CloseAll() })

	for _, room := range []string{"#main", "#control"} {
		if err := b.Open(room); err != nil {
			t.Fatalf("Open(%s): %v", room, err)
		}
	}
	if err := b.Write("#main", "before midnight"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	if err := b.Write("#main", "after midnight"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rotations != 1 {
		t.Fatalf("rotations = %d, want 1", rotations)
	}

	old := readFile(t, filepath.Join(dir, "#main", "24-03-09-#main.log"))
	if !strings.Contains(old, "before midnight") || strings.Contains(old, "after midnight") {
		t.Errorf("old file contents = %q", old)
	}
	cur := readFile(t, filepath.Join(dir, "#main", "24-03-10-#main.log"))
	if cur != "10-03-24 00:01:00 after midnight\n" {
		t.Errorf("new file contents = %q", cur)
	}
	if _, err := os.Stat(filepath.Join(dir, "#control", "24-03-10-#control.log")); err != nil {
		t.Errorf("control log not reopened: %v", err)
	}
}

func TestBookRotateFailureKeepsLine(t *testing.T) {
	dir := t.TempDir()
	clk := &fakeClock{t: time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)}
	b := NewBook(dir)
	b.SetClock(clk.now)
	t.Cleanup(func() { _ = b.CloseAll() })

	for _, room := range []string{"#main", "#control"} {
		if err := b.Open(room); err != nil {
			t.Fatalf("Open(%s): %v", room, err)
		}
	}
	// a directory where tomorrow's #main file belongs makes its reopen fail
	next := clk.t.Add(2 * time.Minute)
	if err := os.MkdirAll(b.Path("#main", next), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	clk.t = next
	if err := b.Write("#main", "after midnight"); err == nil {
		t.Fatal("Write() = nil, want the rotation error")
	}
	old := readFile(t, filepath.Join(dir, "#main", "24-03-09-#main.log"))
	if !strings.Contains(old, "after midnight") {
		t.Errorf("line lost on failed rotation, old file = %q", old)
	}
	if _, err := os.Stat(filepath.Join(dir, "#control", "24-03-10-#control.log")); err != nil {
		t.Errorf("other rooms not rotated: %v", err)
	}
}

func TestBookClose(t *testing.T) {
	b := NewBook(t.TempDir())
	if err := b.Open("#extra"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !b.IsOpen("#EXTRA") {
		t.Fatalf("IsOpen = false after Open")
	}
	if err := b.Close("#extra"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close("#extra"); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if len(b.Rooms()) != 0 {
		t.Errorf("Rooms() = %v, want empty", b.Rooms())
	}
}
