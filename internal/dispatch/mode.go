package dispatch

import (
	"strings"
	"unicode"
)

// Mode is the top-level conversation behaviour.
type Mode string

const (
	Explainer  Mode = "explainer"
	Summarizer Mode = "summarizer"
	Quizzer    Mode = "quizzer"
)

// SubMode refines Quizzer; it is ignored for every other mode.
type SubMode string

const (
	NoSubMode         SubMode = ""
	GenerateQuestions SubMode = "generate_questions"
	SolveQuestions    SubMode = "solve_questions"
	EvaluateAnswers   SubMode = "evaluate_answers"
)

var modeLabels = map[Mode]string{
	Explainer:  "💡 Explainer",
	Summarizer: "📰 Summarizer",
	Quizzer:    "🧩 Quizzer",
}

var subModeLabels = map[SubMode]string{
	GenerateQuestions: "📝 Generate Questions",
	SolveQuestions:    "📖 Solve Questions",
	EvaluateAnswers:   "✅ Evaluate Answers",
}

var subModeAliases = map[string]SubMode{
	"generate":           GenerateQuestions,
	"generate_questions": GenerateQuestions,
	"solve":              SolveQuestions,
	"solve_questions":    SolveQuestions,
	"evaluate":           EvaluateAnswers,
	"evaluate_answers":   EvaluateAnswers,
}

// Modes lists the modes in menu order.
func Modes() []Mode {
	return []Mode{Explainer, Summarizer, Quizzer}
}

// SubModes lists the Quizzer sub-modes in menu order.
func SubModes() []SubMode {
	return []SubMode{GenerateQuestions, SolveQuestions, EvaluateAnswers}
}

// ParseMode accepts a canonical name ("quizzer") or a menu label
// ("🧩 Quizzer"). Unrecognised input is kept verbatim so that dispatch can
// report it as an unknown mode.
func ParseMode(s string) Mode {
	key := normalize(s)
	for _, m := range Modes() {
		if key == string(m) {
			return m
		}
	}
	return Mode(s)
}

// ParseSubMode accepts canonical names, short aliases ("solve") and menu
// labels. Empty input means no sub-mode.
func ParseSubMode(s string) SubMode {
	if strings.TrimSpace(s) == "" {
		return NoSubMode
	}
	if sub, ok := subModeAliases[normalize(s)]; ok {
		return sub
	}
	return SubMode(s)
}

func (m Mode) Valid() bool {
	_, ok := modeLabels[m]
	return ok
}

func (m Mode) Label() string {
	if label, ok := modeLabels[m]; ok {
		return label
	}
	return string(m)
}

func (s SubMode) Valid() bool {
	_, ok := subModeLabels[s]
	return ok
}

func (s SubMode) Label() string {
	if label, ok := subModeLabels[s]; ok {
		return label
	}
	return string(s)
}

// Selection is what the learner picked for the current message.
type Selection struct {
	Mode    Mode
	SubMode SubMode
}

// String renders the chat header, e.g. "🧩 Quizzer · 📝 Generate Questions".
func (s Selection) String() string {
	if s.Mode == Quizzer && s.SubMode != NoSubMode {
		return s.Mode.Label() + " · " + s.SubMode.Label()
	}
	return s.Mode.Label()
}

// normalize drops leading emoji and punctuation, lowercases, and joins words
// with underscores.
func normalize(s string) string {
	s = strings.TrimLeftFunc(strings.TrimSpace(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
