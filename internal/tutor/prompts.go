package tutor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template names, also the keys of the prompts override file.
const (
	promptSystem            = "system"
	promptExplain           = "explain"
	promptSummarize         = "summarize"
	promptGenerateQuestions = "generate_questions"
	promptSolveQuestions    = "solve_questions"
	promptEvaluateAnswers   = "evaluate_answers"
)

// PromptFile is the shape of the YAML override file. Empty fields keep the
// built-in template.
type PromptFile struct {
	System            string `yaml:"system"`
	Explain           string `yaml:"explain"`
	Summarize         string `yaml:"summarize"`
	GenerateQuestions string `yaml:"generate_questions"`
	SolveQuestions    string `yaml:"solve_questions"`
	EvaluateAnswers   string `yaml:"evaluate_answers"`
}

func (f PromptFile) byName() map[string]string {
	return map[string]string{
		promptSystem:            f.System,
		promptExplain:           f.Explain,
		promptSummarize:         f.Summarize,
		promptGenerateQuestions: f.GenerateQuestions,
		promptSolveQuestions:    f.SolveQuestions,
		promptEvaluateAnswers:   f.EvaluateAnswers,
	}
}

var defaultPrompts = PromptFile{
	System: `You are StudyBuddy, a patient tutor for students. Answer in the language of the question. Use Markdown, keep explanations accurate and say so when you are unsure.`,

	Explain: `Explain the following to a student in clear, simple terms. Start with a one-sentence answer, then go deeper with short paragraphs and a concrete example.
{{- if .Context}}

Recent conversation:
{{.Context}}
{{- end}}

Question: {{.Message}}`,

	Summarize: `Summarize the following study material for a student. Use concise bullet points grouped under short headings and keep the key terms and definitions.
{{- if .Focus}}
Focus on: {{.Focus}}
{{- end}}
{{- if .Instruction}}
Instruction: {{.Instruction}}
{{- end}}
{{- if .Context}}

Recent conversation:
{{.Context}}
{{- end}}

Material:
{{.Text}}`,

	GenerateQuestions: `Write practice questions about the following topic or material. Mix recall and understanding questions, number them, and do not include the answers.
{{- if .Context}}

Recent conversation:
{{.Context}}
{{- end}}

Topic:
{{.Message}}`,

	SolveQuestions: `Solve the following questions step by step. Number each answer to match its question and explain the reasoning briefly.
{{- if .Context}}

Recent conversation:
{{.Context}}
{{- end}}

Questions:
{{.Message}}`,

	EvaluateAnswers: `Evaluate the student's answers to the questions below. For each one say whether it is correct, partially correct or wrong, give the correct answer where needed, and finish with a score and one tip to improve.
{{- if .Context}}

Recent conversation:
{{.Context}}
{{- end}}

Questions:
{{.Questions}}

Student answers:
{{.Answers}}`,
}

// promptData is what every template sees. Unused fields are empty.
type promptData struct {
	Message     string
	Context     string
	Text        string
	Focus       string
	Instruction string
	Questions   string
	Answers     string
}

// Prompts is a compiled set of templates.
type Prompts struct {
	tmpl   *template.Template
	source string
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	p, err := compile(defaultPrompts, "built-in")
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPrompts reads a YAML override file on top of the built-in templates.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var file PromptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}

	merged := defaultPrompts.byName()
	for name, text := range file.byName() {
		if strings.TrimSpace(text) != "" {
			merged[name] = text
		}
	}

	return compile(PromptFile{
		System:            merged[promptSystem],
		Explain:           merged[promptExplain],
		Summarize:         merged[promptSummarize],
		GenerateQuestions: merged[promptGenerateQuestions],
		SolveQuestions:    merged[promptSolveQuestions],
		EvaluateAnswers:   merged[promptEvaluateAnswers],
	}, path)
}

func compile(file PromptFile, source string) (*Prompts, error) {
	root := template.New("prompts").Option("missingkey=error")
	for name, text := range file.byName() {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
	}
	return &Prompts{tmpl: root, source: source}, nil
}

// Source names where the templates came from.
func (p *Prompts) Source() string {
	return p.source
}

func (p *Prompts) render(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}
