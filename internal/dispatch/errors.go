package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies why a dispatch produced no model answer.
type Kind int

const (
	// KindMalformedInput: the message does not have the shape the mode needs.
	KindMalformedInput Kind = iota + 1
	// KindUnknownMode: the selection names no known operation.
	KindUnknownMode
	// KindBackendFailure: the backend operation returned an error.
	KindBackendFailure
	// KindTimeout: the backend operation did not finish in time.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindUnknownMode:
		return "unknown mode"
	case KindBackendFailure:
		return "backend failure"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error type returned by Dispatch.
type Error struct {
	Kind      Kind
	Selection Selection
	Op        string // backend operation, empty when none was called
	Cause     error
}

func (e *Error) Error() string {
	msg := "dispatch " + e.Selection.String() + ": " + e.Kind.String()
	if e.Op != "" {
		msg = "dispatch " + e.Op + ": " + e.Kind.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of a dispatch error, or 0 for any other error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

var (
	errMissingSeparator = errors.New("questions and answers must be separated by " + answerSeparator)
	errUnknownMode      = errors.New("no operation for this mode")
)
