package dispatch

import (
	"context"
	"errors"

	"github.com/bowerhall/studybuddy/internal/session"
)

// Fixed replies shown in place of a model answer.
const (
	MsgMissingSeparator = "⚠️ Please separate questions and answers using `---`."
	MsgUnknownMode      = "⚠️ Unknown mode selected."
	MsgUnknownSubMode   = "⚠️ Unknown Quizzer sub-mode."

	backendFailurePrefix = "❌ Something went wrong. Please try again.\n\nError: "
	timeoutPrefix        = "⏱️ The model took too long to answer. Please try again.\n\nError: "
)

// Render turns a dispatch error into the text shown to the learner.
func Render(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return backendFailurePrefix + err.Error()
	}

	switch de.Kind {
	case KindMalformedInput:
		return MsgMissingSeparator
	case KindUnknownMode:
		if de.Selection.Mode == Quizzer {
			return MsgUnknownSubMode
		}
		return MsgUnknownMode
	case KindTimeout:
		return timeoutPrefix + causeText(de)
	default:
		return backendFailurePrefix + causeText(de)
	}
}

func causeText(e *Error) string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Cause.Error()
}

// Respond handles one learner message end to end: it records the message,
// dispatches it with the digest of the turns before it, and records and
// returns the reply. It always yields exactly one reply and never fails.
func (d *Dispatcher) Respond(ctx context.Context, sel Selection, message string, sess *session.Session) string {
	reply, _ := d.RespondAt(ctx, sel, message, sess)
	return reply
}

// RespondAt is Respond that also returns the history index of the reply.
func (d *Dispatcher) RespondAt(ctx context.Context, sel Selection, message string, sess *session.Session) (string, int) {
	history := sess.Messages()
	sess.AddMessage(session.RoleUser, message)

	req := Request{
		Selection: sel,
		Message:   message,
		Context:   ContextDigest(history, d.turns),
		Document:  sess.Document(),
		FocusHint: sess.FocusHint(),
	}

	reply, err := d.Dispatch(ctx, req)
	if err != nil {
		kind := KindOf(err)
		if d.onFailure != nil && (kind == KindBackendFailure || kind == KindTimeout) {
			d.onFailure(sel, err)
		}
		reply = Render(err)
	}

	return reply, sess.AppendMessage(session.RoleAssistant, reply)
}
