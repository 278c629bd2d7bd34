package agent

import (
	"context"

	"github.com/bowerhall/studybuddy/internal/dispatch"
	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/feedback"
	"github.com/bowerhall/studybuddy/internal/session"
)

// Transcript archives finished turns.
type Transcript interface {
	AppendTurn(ctx context.Context, sessionID, mode, question, answer string) error
}

// Uploads keeps the original bytes of uploaded documents.
type Uploads interface {
	ArchiveUpload(ctx context.Context, sessionID, fileName string, data []byte) (string, error)
}

type Agent struct {
	sessions   *session.Store
	dispatcher *dispatch.Dispatcher
	feedback   *feedback.Recorder
	transcript Transcript
	uploads    Uploads
}

// Reply is the outcome of one learner message.
type Reply struct {
	Text      string
	Index     int // position of the reply in the session history
	Selection dispatch.Selection
}

// DocumentInfo describes a loaded document without its full text.
type DocumentInfo struct {
	SourceName  string `json:"source_name"`
	RawChars    int    `json:"raw_chars"`
	EditedChars int    `json:"edited_chars"`
	Preview     string `json:"edited_text"`
	FocusHint   string `json:"focus"`
	LowText     bool   `json:"low_text"`
}

func describe(doc document.Document, focus string) DocumentInfo {
	return DocumentInfo{
		SourceName:  doc.SourceName,
		RawChars:    doc.RawChars(),
		EditedChars: doc.EditedChars(),
		Preview:     doc.EditedText,
		FocusHint:   focus,
		LowText:     doc.LowText(),
	}
}
