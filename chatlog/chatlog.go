// Package chatlog writes one append-only text file per room:
//
//	<dir>/<room>/<YY-MM-DD>-<room>.log
//
// Each line is "<DD-MM-YY HH:MM:SS> <text>". All open files are reopened when
// a write happens on a later calendar day than the one they were opened on.
// A Book is owned by the chat session's event loop and is not safe for
// concurrent use.
package chatlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotOpen is returned when writing to a room that has no open log.
var ErrNotOpen = errors.New("chatlog: room log not open")

const (
	fileDateLayout = "06-01-02"
	lineTimeLayout = "02-01-06 15:04:05"
)

type handle struct {
	f   *os.File
	day time.Time
}

// Book holds the open log handles keyed by lowercased room name.
type Book struct {
	dir string
	now func() time.Time

	// OnRotate, when set, is called after every daily rotation.
	OnRotate func()

	files map[string]*handle
}

// NewBook returns a Book rooted at dir.
func NewBook(dir string) *Book {
	if dir == "" {
		dir = "."
	}
	return &Book{dir: dir, now: time.Now, files: make(map[string]*handle)}
}

// SetClock replaces the time source. Intended for tests.
func (b *Book) SetClock(now func() time.Time) { b.now = now }

// Path returns the file a room's log would be written to at t.
func (b *Book) Path(room string, t time.Time) string {
	room = strings.ToLower(room)
	name := fmt.Sprintf("%s-%s.log", t.Format(fileDateLayout), room)
	return filepath.Join(b.dir, room, name)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (b *Book) open(room string, now time.Time) (*handle, error) {
	path := b.Path(room, now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path built from configured dir and room name
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &handle{f: f, day: dayOf(now)}, nil
}

// Open opens (or keeps) the log for room.
func (b *Book) Open(room string) error {
	room = strings.ToLower(room)
	if _, ok := b.files[room]; ok {
		return nil
	}
	h, err := b.open(room, b.now())
	if err != nil {
		return err
	}
	b.files[room] = h
	return nil
}

// IsOpen reports whether room has an open log.
func (b *Book) IsOpen(room string) bool {
	_, ok := b.files[strings.ToLower(room)]
	return ok
}

// Rooms returns the rooms with an open log, sorted.
func (b *Book) Rooms() []string {
	out := make([]string, 0, len(b.files))
	for r := range b.files {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Close closes and forgets room's log. Closing an unknown room is a no-op.
func (b *Book) Close(room string) error {
	room = strings.ToLower(room)
	h, ok := b.files[room]
	if !ok {
		return nil
	}
	delete(b.files, room)
	return h.f.Close()
}

// CloseAll closes every open log.
func (b *Book) CloseAll() error {
	var errs []error
	for room := range b.files {
		if err := b.Close(room); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Write appends a timestamped line to room's log, rotating first when the
// calendar day changed. A room whose rotation failed keeps its old file and
// the line is still written there.
func (b *Book) Write(room, text string) error {
	room = strings.ToLower(room)
	h, ok := b.files[room]
	if !ok {
		return ErrNotOpen
	}
	now := b.now()
	var rotErr error
	if !dayOf(now).Equal(h.day) {
		rotErr = b.Rotate()
		h = b.files[room]
	}
	line := now.Format(lineTimeLayout) + " " + text + "\n"
	if _, err := h.f.WriteString(line); err != nil {
		return errors.Join(rotErr, fmt.Errorf("write log %s: %w", room, err))
	}
	return rotErr
}

// Rotate reopens every log under today's file name. The new file is opened
// before the old one is synced and closed; a room that cannot be reopened
// stays on its old file.
func (b *Book) Rotate() error {
	now := b.now()
	var errs []error
	for room, old := range b.files {
		h, err := b.open(room, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.files[room] = h
		if err := old.f.Sync(); err != nil {
			slog.Warn("chatlog: sync before rotate failed", slog.String("room", room), slog.Any("err", err))
		}
		if err := old.f.Close(); err != nil {
			slog.Warn("chatlog: close after rotate failed", slog.String("room", room), slog.Any("err", err))
		}
	}
	if b.OnRotate != nil {
		b.OnRotate()
	}
	return errors.Join(errs...)
}
