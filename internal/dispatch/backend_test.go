package dispatch

import (
	"context"
	"fmt"
	"sync"
)

type call struct {
	Op   string
	Args []string
}

// fakeBackend records every call and answers deterministically.
type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	err   error
	block bool
}

func (f *fakeBackend) record(ctx context.Context, op string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Op: op, Args: args})
	err := f.err
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%d args)", op, len(args)), nil
}

func (f *fakeBackend) Explain(ctx context.Context, message, history string) (string, error) {
	return f.record(ctx, "explain", message, history)
}

func (f *fakeBackend) Summarize(ctx context.Context, text, history, focus, instruction string) (string, error) {
	return f.record(ctx, "summarize", text, history, focus, instruction)
}

func (f *fakeBackend) GenerateQuestions(ctx context.Context, message, history string) (string, error) {
	return f.record(ctx, "generate_questions", message, history)
}

func (f *fakeBackend) SolveQuestions(ctx context.Context, message, history string) (string, error) {
	return f.record(ctx, "solve_questions", message, history)
}

func (f *fakeBackend) EvaluateAnswers(ctx context.Context, questions, answers, history string) (string, error) {
	return f.record(ctx, "evaluate_answers", questions, answers, history)
}

func (f *fakeBackend) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}
