// Package document holds an uploaded study document and the rules that
// decide which of its texts is sent to the model.
package document

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// PreviewChars is how much of the extracted text is offered for editing.
	PreviewChars = 3000

	// MinChars is the shortest selected text accepted for summarizing.
	MinChars = 50
)

// ErrTooLittleText means the selected text is too short to be worth
// summarizing, usually because the PDF is a scan without a text layer.
var ErrTooLittleText = errors.New("not enough valid text to summarize")

// Document is the extracted text of one upload plus the learner's edits.
type Document struct {
	RawText    string
	EditedText string
	SourceName string
}

// New stages freshly extracted text. The editable copy starts as the preview.
func New(raw, sourceName string) Document {
	return Document{
		RawText:    raw,
		EditedText: prefix(raw, PreviewChars),
		SourceName: sourceName,
	}
}

// Text returns the text to summarize.
func (d Document) Text() string {
	return Select(d.RawText, d.EditedText)
}

// Select picks between the raw extraction and the learner's edit. An empty or
// untouched edit means the learner wants the whole raw text; any real edit
// wins. Both are trimmed.
func Select(raw, edited string) string {
	edited = strings.TrimSpace(edited)
	raw = strings.TrimSpace(raw)

	switch {
	case edited == "" && raw != "":
		return raw
	case edited == prefix(raw, PreviewChars):
		return raw
	default:
		return edited
	}
}

// Validate rejects documents whose selected text is shorter than MinChars.
func (d Document) Validate() error {
	if utf8.RuneCountInString(d.Text()) < MinChars {
		return ErrTooLittleText
	}
	return nil
}

// LowText reports whether extraction found so little text that the PDF is
// probably scanned.
func (d Document) LowText() bool {
	return d.RawChars() < MinChars
}

// RawChars is the character count of the trimmed raw text.
func (d Document) RawChars() int {
	return utf8.RuneCountInString(strings.TrimSpace(d.RawText))
}

// EditedChars is the character count of the trimmed edited text.
func (d Document) EditedChars() int {
	return utf8.RuneCountInString(strings.TrimSpace(d.EditedText))
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
