// Package dispatch routes a learner's message to the right tutoring
// operation for the selected mode and turns every outcome into a reply.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/logger"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 60 * time.Second

const answerSeparator = "---"

// Backend performs the tutoring operations. Empty focus or instruction
// arguments to Summarize mean "not given".
type Backend interface {
	Explain(ctx context.Context, message, history string) (string, error)
	Summarize(ctx context.Context, text, history, focus, instruction string) (string, error)
	GenerateQuestions(ctx context.Context, message, history string) (string, error)
	SolveQuestions(ctx context.Context, message, history string) (string, error)
	EvaluateAnswers(ctx context.Context, questions, answers, history string) (string, error)
}

// Request is everything one dispatch needs. It lives for a single message.
type Request struct {
	Selection Selection
	Message   string
	Context   string
	Document  *document.Document
	FocusHint string
}

// FailureFunc is told about backend failures and timeouts.
type FailureFunc func(sel Selection, err error)

type Dispatcher struct {
	backend   Backend
	timeout   time.Duration
	turns     int
	onFailure FailureFunc
}

type Option func(*Dispatcher)

// WithTimeout sets the per-call backend timeout. Zero or less disables it.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// WithContextTurns sets how many turn pairs go into the context digest.
func WithContextTurns(n int) Option {
	return func(disp *Dispatcher) {
		disp.turns = n
	}
}

// WithFailureHook registers fn for backend failures and timeouts.
func WithFailureHook(fn FailureFunc) Option {
	return func(disp *Dispatcher) {
		disp.onFailure = fn
	}
}

func New(backend Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend: backend,
		timeout: DefaultTimeout,
		turns:   DefaultContextTurns,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the operation for req.Selection. Errors are always *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	sel := req.Selection
	logger.Debug("dispatching", "mode", sel.Mode, "sub_mode", sel.SubMode, "chars", len(req.Message))

	switch sel.Mode {
	case Explainer:
		return d.call(ctx, sel, "explain", func(ctx context.Context) (string, error) {
			return d.backend.Explain(ctx, req.Message, req.Context)
		})

	case Summarizer:
		return d.summarize(ctx, req)

	case Quizzer:
		return d.quiz(ctx, req)

	default:
		return "", &Error{Kind: KindUnknownMode, Selection: sel, Cause: errUnknownMode}
	}
}

func (d *Dispatcher) summarize(ctx context.Context, req Request) (string, error) {
	p := strings.TrimSpace(req.Message)

	if req.Document == nil {
		return d.call(ctx, req.Selection, "summarize", func(ctx context.Context) (string, error) {
			return d.backend.Summarize(ctx, p, req.Context, "", "")
		})
	}

	var instruction string
	switch {
	case IsFollowUp(p):
		instruction = fmt.Sprintf("Follow-up question: %s. Use previous response and document content.", p)
	case p != "":
		instruction = p
	default:
		instruction = req.FocusHint
	}

	text := req.Document.Text()
	return d.call(ctx, req.Selection, "summarize", func(ctx context.Context) (string, error) {
		return d.backend.Summarize(ctx, text, req.Context, req.FocusHint, instruction)
	})
}

func (d *Dispatcher) quiz(ctx context.Context, req Request) (string, error) {
	sel := req.Selection

	switch sel.SubMode {
	case GenerateQuestions:
		return d.call(ctx, sel, "generate_questions", func(ctx context.Context) (string, error) {
			return d.backend.GenerateQuestions(ctx, req.Message, req.Context)
		})

	case SolveQuestions:
		return d.call(ctx, sel, "solve_questions", func(ctx context.Context) (string, error) {
			return d.backend.SolveQuestions(ctx, req.Message, req.Context)
		})

	case EvaluateAnswers:
		parts := strings.Split(req.Message, answerSeparator)
		if len(parts) != 2 {
			return "", &Error{Kind: KindMalformedInput, Selection: sel, Cause: errMissingSeparator}
		}

		questions := strings.TrimSpace(parts[0])
		answers := strings.TrimSpace(parts[1])
		return d.call(ctx, sel, "evaluate_answers", func(ctx context.Context) (string, error) {
			return d.backend.EvaluateAnswers(ctx, questions, answers, req.Context)
		})

	default:
		return "", &Error{Kind: KindUnknownMode, Selection: sel, Cause: errUnknownMode}
	}
}

// call runs one backend operation under the dispatch timeout and classifies
// its failure.
func (d *Dispatcher) call(ctx context.Context, sel Selection, op string, fn func(context.Context) (string, error)) (string, error) {
	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := fn(callCtx)
	if err == nil {
		logger.Debug("backend call done", "op", op, "chars", len(resp), "took", time.Since(start))
		return resp, nil
	}

	kind := KindBackendFailure
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}

	logger.Warn("backend call failed", "op", op, "kind", kind, "took", time.Since(start), "error", err)
	return "", &Error{Kind: kind, Selection: sel, Op: op, Cause: err}
}
