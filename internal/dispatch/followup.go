package dispatch

import "strings"

const maxFollowUpWords = 12

var questionWords = map[string]bool{
	"what":     true,
	"why":      true,
	"how":      true,
	"when":     true,
	"which":    true,
	"who":      true,
	"where":    true,
	"explain":  true,
	"describe": true,
}

// IsFollowUp guesses whether message continues the discussion of an already
// loaded document: any short message, or anything shaped like a question.
// It is a heuristic and its exact behaviour is relied on.
func IsFollowUp(message string) bool {
	p := strings.TrimSpace(message)
	if p == "" {
		return false
	}

	words := strings.Fields(p)
	isShort := len(words) <= maxFollowUpWords
	isQuestion := strings.HasSuffix(p, "?") || questionWords[strings.ToLower(words[0])]

	return isShort || isQuestion
}
