package presence

import (
	"fmt"
	"iter"
	"time"
)

// FormatIdle renders one idle report line, e.g.
// "nick is 1 uur, 1 minuten en 1 seconden idle.".
func FormatIdle(nick string, last, now time.Time) string {
	secs := int64(now.Sub(last).Round(time.Second) / time.Second)
	if secs < 0 {
		secs = 0
	}
	hours, rem := secs/3600, secs%3600
	minutes, seconds := rem/60, rem%60
	return fmt.Sprintf("%s is %d uur, %d minuten en %d seconden idle.", nick, hours, minutes, seconds)
}

// Report renders the idle report for every participant yielded by times.
func Report(times iter.Seq2[string, time.Time], now time.Time) []string {
	var out []string
	for nick, last := range times {
		out = append(out, FormatIdle(nick, last, now))
	}
	return out
}
