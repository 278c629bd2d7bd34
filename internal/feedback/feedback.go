// Package feedback acknowledges 👍/👎 reactions on tutor replies. Nothing is
// stored or counted.
package feedback

import (
	"errors"
	"fmt"

	"github.com/bowerhall/studybuddy/internal/logger"
	"github.com/bowerhall/studybuddy/internal/session"
)

var ErrUnknownMessage = errors.New("no assistant message at that index")

const (
	helpfulText    = "Thanks for the feedback!"
	notHelpfulText = "We’ll try to improve the next response."
)

// Ack is the short, ephemeral confirmation shown to whoever reacted.
type Ack struct {
	Helpful bool
	Text    string
}

type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) MarkHelpful(sess *session.Session, index int) (Ack, error) {
	return r.mark(sess, index, true)
}

func (r *Recorder) MarkNotHelpful(sess *session.Session, index int) (Ack, error) {
	return r.mark(sess, index, false)
}

// Mark dispatches to MarkHelpful or MarkNotHelpful.
func (r *Recorder) Mark(sess *session.Session, index int, helpful bool) (Ack, error) {
	return r.mark(sess, index, helpful)
}

func (r *Recorder) mark(sess *session.Session, index int, helpful bool) (Ack, error) {
	msg, ok := sess.Message(index)
	if !ok || msg.Role != session.RoleAssistant {
		return Ack{}, fmt.Errorf("feedback on message %d: %w", index, ErrUnknownMessage)
	}

	logger.Debug("feedback received", "session", sess.ID(), "index", index, "helpful", helpful)

	if helpful {
		return Ack{Helpful: true, Text: helpfulText}, nil
	}
	return Ack{Helpful: false, Text: notHelpfulText}, nil
}

// LastReplyIndex returns the index of the newest assistant message, or -1.
func LastReplyIndex(sess *session.Session) int {
	msgs := sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleAssistant {
			return i
		}
	}
	return -1
}
