package dispatch

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bowerhall/studybuddy/internal/session"
)

// DefaultContextTurns is how many user/assistant pairs feed the digest.
const DefaultContextTurns = 3

// ContextDigest renders the last turns pairs of history (the last 2*turns
// messages) as "Role: content" lines in chronological order. history must not
// include the message being answered.
func ContextDigest(history []session.Message, turns int) string {
	if turns <= 0 || len(history) == 0 {
		return ""
	}

	start := len(history) - 2*turns
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, len(history)-start)
	for _, m := range history[start:] {
		lines = append(lines, roleLabel(m.Role)+": "+m.Content)
	}

	return strings.Join(lines, "\n")
}

func roleLabel(role session.Role) string {
	r, size := utf8.DecodeRuneInString(string(role))
	if r == utf8.RuneError {
		return string(role)
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(string(role)[size:])
}
