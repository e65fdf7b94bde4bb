package actions

import (
	"fmt"
	"strings"
)

// Placeholders recognised in action templates.
var placeholders = map[string]bool{"victim": true, "nick": true}

// Validate checks that tmpl only uses {victim} and {nick}. Literal braces
// are written as {{ and }}.
func Validate(tmpl string) error {
	_, err := render(tmpl, nil)
	return err
}

// Render substitutes {victim} and {nick} in tmpl.
func Render(tmpl, victim, nick string) (string, error) {
	return render(tmpl, map[string]string{"victim": victim, "nick": nick})
}

func render(tmpl string, vals map[string]string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unmatched '{'", ErrBadTemplate)
			}
			name := tmpl[i+1 : i+1+end]
			if !placeholders[name] {
				return "", &FieldError{Name: name}
			}
			sb.WriteString(vals[name])
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}'", ErrBadTemplate)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}
