package chat

import (
	"strings"
	"unicode/utf8"
)

const (
	// ChannelLineLimit is the longest line sent to a room in one message.
	ChannelLineLimit = 254
	// PrivateLineLimit is the longest line sent privately in one message.
	PrivateLineLimit = 511
)

// Wrap splits msg into lines of at most limit bytes, breaking at the last
// space before the limit. Words longer than limit are cut on a rune boundary.
func Wrap(msg string, limit int) []string {
	if limit <= 0 || len(msg) <= limit {
		return []string{msg}
	}
	var (
		lines []string
		line  strings.Builder
	)
	flush := func() {
		if line.Len() > 0 {
			lines = append(lines, line.String())
			line.Reset()
		}
	}
	for _, word := range strings.Fields(msg) {
		for len(word) > limit {
			flush()
			n := limit
			for n > 0 && !utf8.RuneStart(word[n]) {
				n--
			}
			if n == 0 {
				n = limit
			}
			lines = append(lines, word[:n])
			word = word[n:]
		}
		if line.Len() > 0 && line.Len()+1+len(word) > limit {
			flush()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	flush()
	return lines
}
