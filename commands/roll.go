package commands

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	rollUsage  = "Usage: !roll [x]dy (d20, 2d6)"
	maxDice    = 10
	maxSides   = 100
	firstFace6 = '\u2680'
)

var rollPattern = regexp.MustCompile(`^([0-9]*)d([0-9]+)$`)

func (s *Set) roll(_ context.Context, nick string, args []string) []string {
	if len(args) != 2 {
		return []string{rollUsage}
	}
	m := rollPattern.FindStringSubmatch(strings.ToLower(args[1]))
	if m == nil {
		return []string{rollUsage}
	}
	amount := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > maxDice {
			return []string{"Nice try."}
		}
		amount = n
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil || sides < 1 || sides > maxSides {
		return []string{"That's not a real die."}
	}
	faces := make([]string, amount)
	for i := range faces {
		n := s.opts.Roll(sides) + 1
		if sides == 6 {
			faces[i] = string(rune(firstFace6 + n - 1))
		} else {
			faces[i] = strconv.Itoa(n)
		}
	}
	return []string{fmt.Sprintf("%s rolled: %s", nick, strings.Join(faces, " "))}
}
