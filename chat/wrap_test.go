package chat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWrap(t *testing.T) {
	hello := strings.TrimSpace(strings.Repeat("Hello World! ", 21))
	twelves := strings.TrimSpace(strings.Repeat("abcdefghijkl ", 20))

	tests := []struct {
		name      string
		msg       string
		limit     int
		wantLines int
		last      string
	}{
		{"short", "hi there", ChannelLineLimit, 1, "hi there"},
		{"exact", strings.Repeat("x", ChannelLineLimit), ChannelLineLimit, 1, strings.Repeat("x", ChannelLineLimit)},
		{"hello world", hello, ChannelLineLimit, 2, "World! Hello World!"},
		{"twelve letter words", twelves, ChannelLineLimit, 2, ""},
		{"private limit", hello, PrivateLineLimit, 1, hello},
		{"oversized word", strings.Repeat("y", 600), ChannelLineLimit, 3, strings.Repeat("y", 600-2*ChannelLineLimit)},
		{"multibyte word", strings.Repeat("€", 200), ChannelLineLimit, 3, strings.Repeat("€", 200-2*84)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.msg, tt.limit)
			if len(got) != tt.wantLines {
				t.Fatalf("Wrap() gave %d lines, want %d: %q", len(got), tt.wantLines, got)
			}
			for i, l := range got {
				if len(l) > tt.limit {
					t.Errorf("line %d is %d bytes, limit %d", i, len(l), tt.limit)
				}
				if !utf8.ValidString(l) {
					t.Errorf("line %d is not valid UTF-8: %q", i, l)
				}
			}
			if tt.last != "" && got[len(got)-1] != tt.last {
				t.Errorf("last line = %q, want %q", got[len(got)-1], tt.last)
			}
			if strings.Join(got, " ") != strings.Join(strings.Fields(tt.msg), " ") && !strings.HasSuffix(tt.name, "word") {
				t.Errorf("words lost or reordered")
			}
			if strings.HasSuffix(tt.name, "word") && strings.Join(got, "") != tt.msg {
				t.Errorf("cut word does not reassemble")
			}
		})
	}
}

func TestCommandsTable(t *testing.T) {
	c := NewCommands()
	c.Register("Roll", nil).Register("list", nil)
	if !c.Has("ROLL") || !c.Has("list") {
		t.Fatal("lookup should be case-insensitive")
	}
	if got := strings.Join(c.Names(), ","); got != "list,roll" {
		t.Errorf("Names() = %q", got)
	}
	c.Remove("roll")
	if c.Has("roll") {
		t.Error("roll not removed")
	}
}

func TestEventKindString(t *testing.T) {
	if EventNamesEnd.String() != "names_end" {
		t.Errorf("EventNamesEnd = %q", EventNamesEnd.String())
	}
	if EventKind(99).String() != "unknown" {
		t.Errorf("out of range kind = %q", EventKind(99).String())
	}
}
