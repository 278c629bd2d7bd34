// Package tutor implements the tutoring operations on top of a chat model.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bowerhall/studybuddy/internal/budget"
	"github.com/bowerhall/studybuddy/internal/llm"
	"github.com/bowerhall/studybuddy/internal/logger"
)

var errEmptyReply = errors.New("model returned an empty reply")

type Tutor struct {
	model   llm.LLM
	budget  *budget.Tracker
	prompts atomic.Pointer[Prompts]
}

// New builds a tutor. tracker may be nil for no budget.
func New(model llm.LLM, tracker *budget.Tracker, prompts *Prompts) *Tutor {
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	t := &Tutor{model: model, budget: tracker}
	t.prompts.Store(prompts)
	return t
}

func (t *Tutor) SetPrompts(p *Prompts) {
	t.prompts.Store(p)
}

func (t *Tutor) Prompts() *Prompts {
	return t.prompts.Load()
}

func (t *Tutor) Explain(ctx context.Context, message, history string) (string, error) {
	return t.ask(ctx, promptExplain, promptData{Message: message, Context: history})
}

func (t *Tutor) Summarize(ctx context.Context, text, history, focus, instruction string) (string, error) {
	return t.ask(ctx, promptSummarize, promptData{
		Text:        text,
		Context:     history,
		Focus:       focus,
		Instruction: instruction,
	})
}

func (t *Tutor) GenerateQuestions(ctx context.Context, message, history string) (string, error) {
	return t.ask(ctx, promptGenerateQuestions, promptData{Message: message, Context: history})
}

func (t *Tutor) SolveQuestions(ctx context.Context, message, history string) (string, error) {
	return t.ask(ctx, promptSolveQuestions, promptData{Message: message, Context: history})
}

func (t *Tutor) EvaluateAnswers(ctx context.Context, questions, answers, history string) (string, error) {
	return t.ask(ctx, promptEvaluateAnswers, promptData{Questions: questions, Answers: answers, Context: history})
}

func (t *Tutor) ask(ctx context.Context, name string, data promptData) (string, error) {
	if t.budget != nil && t.budget.Exhausted() {
		return "", budget.ErrBudgetExhausted
	}

	prompts := t.prompts.Load()

	system, err := prompts.render(promptSystem, data)
	if err != nil {
		return "", err
	}
	user, err := prompts.render(name, data)
	if err != nil {
		return "", err
	}

	resp, err := t.model.Chat(ctx, system, []llm.Message{{Role: "user", Content: user}})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	if resp.Usage != nil && t.budget != nil {
		t.budget.Record(ctx, t.model.Provider(), t.model.Model(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		logger.Warn("empty model reply", "op", name, "stop_reason", resp.StopReason)
		return "", fmt.Errorf("%s: %w", name, errEmptyReply)
	}

	return reply, nil
}
