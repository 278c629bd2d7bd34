// Package agent owns the chat sessions and is the one entry point every
// front end (HTTP, bots, CLI) drives.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/bowerhall/studybuddy/internal/dispatch"
	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/feedback"
	"github.com/bowerhall/studybuddy/internal/logger"
	"github.com/bowerhall/studybuddy/internal/session"
)

// ErrBusy means the session is still answering an earlier message.
var ErrBusy = errors.New("session is busy")

// BusyMessage is shown to chat users who write while a reply is pending.
const BusyMessage = "I'm still working on your previous message. Send this again once I've answered!"

func New(sessions *session.Store, dispatcher *dispatch.Dispatcher) *Agent {
	return &Agent{
		sessions:   sessions,
		dispatcher: dispatcher,
		feedback:   feedback.NewRecorder(),
	}
}

func (a *Agent) SetTranscript(t Transcript) {
	a.transcript = t
}

func (a *Agent) SetUploads(u Uploads) {
	a.uploads = u
}

func (a *Agent) Sessions() *session.Store {
	return a.sessions
}

// Process answers one message. It returns ErrBusy, and nothing else, when the
// session is mid-dispatch; every other outcome is a reply.
func (a *Agent) Process(ctx context.Context, sessionID string, sel dispatch.Selection, message string) (Reply, error) {
	sess := a.sessions.Get(sessionID)

	// one dispatch per session at a time
	if !sess.TryAcquire() {
		logger.Debug("session busy", "session", sessionID)
		return Reply{}, ErrBusy
	}
	defer sess.Release()

	text, index := a.dispatcher.RespondAt(ctx, sel, message, sess)
	reply := Reply{Text: text, Index: index, Selection: sel}

	if a.transcript != nil {
		if err := a.transcript.AppendTurn(ctx, sessionID, sel.String(), message, text); err != nil {
			logger.Warn("transcript append failed", "session", sessionID, "error", err)
		}
	}

	return reply, nil
}

// LoadDocument extracts a PDF upload and makes it the session's document. A
// PDF with too little text is rejected and the previous document is kept.
func (a *Agent) LoadDocument(ctx context.Context, sessionID, fileName string, data []byte) (DocumentInfo, error) {
	raw, err := document.ExtractPDFBytes(ctx, data)
	if err != nil {
		return DocumentInfo{}, err
	}

	doc := document.New(raw, fileName)
	if err := doc.Validate(); err != nil {
		logger.Info("document rejected", "session", sessionID, "name", fileName, "chars", doc.RawChars())
		return describe(doc, ""), err
	}

	sess := a.sessions.Get(sessionID)
	sess.SetDocument(doc)
	logger.Info("document loaded", "session", sessionID, "name", fileName, "chars", doc.RawChars())

	if a.uploads != nil {
		if key, err := a.uploads.ArchiveUpload(ctx, sessionID, fileName, data); err != nil {
			logger.Warn("upload archive failed", "session", sessionID, "error", err)
		} else {
			logger.Debug("upload archived", "session", sessionID, "key", key)
		}
	}

	return describe(doc, sess.FocusHint()), nil
}

// EditDocument replaces the editable text. An edit that leaves too little
// text is rejected and the document is unchanged.
func (a *Agent) EditDocument(sessionID, edited string) (DocumentInfo, error) {
	sess := a.sessions.Get(sessionID)

	doc := sess.Document()
	if doc == nil {
		return DocumentInfo{}, session.ErrNoDocument
	}

	doc.EditedText = edited
	if err := doc.Validate(); err != nil {
		return describe(*doc, sess.FocusHint()), err
	}

	if err := sess.EditDocument(edited); err != nil {
		return DocumentInfo{}, err
	}
	return describe(*doc, sess.FocusHint()), nil
}

func (a *Agent) SetFocus(sessionID, focus string) {
	a.sessions.Get(sessionID).SetFocusHint(focus)
}

// Document describes the loaded document, if any.
func (a *Agent) Document(sessionID string) (DocumentInfo, bool) {
	sess := a.sessions.Get(sessionID)

	doc := sess.Document()
	if doc == nil {
		return DocumentInfo{}, false
	}
	return describe(*doc, sess.FocusHint()), true
}

// ClearDocument unloads the document and its focus hint.
func (a *Agent) ClearDocument(sessionID string) {
	sess := a.sessions.Get(sessionID)
	sess.ClearDocument()
	sess.SetFocusHint("")
}

// Reset starts a new chat. The loaded document stays and the archived
// transcript is untouched.
func (a *Agent) Reset(sessionID string) {
	a.sessions.Get(sessionID).Reset()
}

func (a *Agent) Messages(sessionID string) []session.Message {
	return a.sessions.Get(sessionID).Messages()
}

// Feedback acknowledges a reaction to the reply at index.
func (a *Agent) Feedback(sessionID string, index int, helpful bool) (feedback.Ack, error) {
	sess, ok := a.sessions.Lookup(sessionID)
	if !ok {
		return feedback.Ack{}, fmt.Errorf("feedback for session %s: %w", sessionID, feedback.ErrUnknownMessage)
	}
	return a.feedback.Mark(sess, index, helpful)
}
