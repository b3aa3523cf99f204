package views

import (
	"strings"
	"time"
	"unicode"
)

// clean drops runes tcell renders badly (emoji modifiers, joiners,
// variation selectors) and control characters, and flattens newlines
// when oneLine is set.
func clean(s string, oneLine bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' && !oneLine:
			b.WriteRune(r)
		case r == '\n' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r), dropped(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dropped(r rune) bool {
	return r == 0x200D ||
		(r >= 0x1F3FB && r <= 0x1F3FF) ||
		(r >= 0xFE00 && r <= 0xFE0F) ||
		(r >= 0xE0100 && r <= 0xE01EF)
}

// stamp formats t as a clock time for today and a date otherwise.
func stamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	if y, d := now.Local().Year(), now.Local().YearDay(); t.Year() == y && t.YearDay() == d {
		return t.Format("15:04")
	}
	return t.Format("Jan 02")
}
