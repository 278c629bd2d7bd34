package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/dispatch"
	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/logger"
	"github.com/bowerhall/studybuddy/internal/session"
)

const feedbackPrefix = "fb:"

const helpText = `🧠 StudyBuddy AI, your study assistant.

Just send a message and I'll answer in the current mode.

/mode explainer | summarizer | quizzer - pick a learning mode
/quiz generate | solve | evaluate - Quizzer options
/summarize [focus] - summarize the loaded PDF
/focus <text> - how the PDF should be summarized
/edit <text> - replace the editable PDF text
/clear - unload the PDF
/new - start a new chat (the PDF stays)
/status - current mode and document

Send a PDF to load study material. For Evaluate Answers, separate questions and answers with ---.`

// Selection returns the chat's current mode, Explainer by default.
func (c *Chat) Selection(sessionID string) dispatch.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sel, ok := c.prefs[sessionID]; ok {
		return sel
	}
	return dispatch.Selection{Mode: dispatch.Explainer, SubMode: dispatch.GenerateQuestions}
}

// SetSelection changes the chat's mode.
func (c *Chat) SetSelection(sessionID string, sel dispatch.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefs[sessionID] = sel
}

// Forget drops per-chat state for evicted sessions.
func (c *Chat) Forget(sessionIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range sessionIDs {
		delete(c.prefs, id)
	}
}

// HandleText answers a text message or command.
func (c *Chat) HandleText(ctx context.Context, sessionID, text string) Outgoing {
	text = strings.TrimSpace(text)
	if cmd, args, ok := parseCommand(text); ok {
		return c.command(ctx, sessionID, cmd, args)
	}
	return c.ask(ctx, sessionID, c.Selection(sessionID), text)
}

func (c *Chat) ask(ctx context.Context, sessionID string, sel dispatch.Selection, text string) Outgoing {
	reply, err := c.agent.Process(ctx, sessionID, sel, text)
	if errors.Is(err, agent.ErrBusy) {
		return plain(agent.BusyMessage)
	}
	if err != nil {
		logger.Error("process failed", "session", sessionID, "error", err)
		return plain("❌ Something went wrong. Please try again.")
	}
	return Outgoing{Text: reply.Text, FeedbackIndex: reply.Index}
}

func (c *Chat) command(ctx context.Context, sessionID, cmd, args string) Outgoing {
	switch cmd {
	case "start", "help":
		return plain(helpText)

	case "mode":
		if args == "" {
			return plain("Current mode: " + c.Selection(sessionID).String() + "\n\nChoose one: " + modeChoices())
		}
		mode := dispatch.ParseMode(args)
		if !mode.Valid() {
			return plain(dispatch.MsgUnknownMode + "\n\nChoose one: " + modeChoices())
		}
		sel := c.Selection(sessionID)
		sel.Mode = mode
		c.SetSelection(sessionID, sel)
		return plain("Mode: " + sel.String())

	case "quiz":
		sub := dispatch.ParseSubMode(args)
		if !sub.Valid() {
			return plain(dispatch.MsgUnknownSubMode + "\n\nChoose one: " + subModeChoices())
		}
		sel := dispatch.Selection{Mode: dispatch.Quizzer, SubMode: sub}
		c.SetSelection(sessionID, sel)
		return plain("Mode: " + sel.String())

	case "new":
		c.agent.Reset(sessionID)
		return plain("New chat started!")

	case "clear":
		c.agent.ClearDocument(sessionID)
		return plain("🗑️ PDF cleared.")

	case "focus":
		c.agent.SetFocus(sessionID, args)
		if args == "" {
			return plain("Summary focus cleared.")
		}
		return plain("🎯 Summary focus: " + args)

	case "edit":
		info, err := c.agent.EditDocument(sessionID, args)
		switch {
		case errors.Is(err, session.ErrNoDocument):
			return plain("📚 No PDF loaded. Send one first.")
		case errors.Is(err, document.ErrTooLittleText):
			return plain("❌ Not enough valid text to summarize. Please check the extracted content.")
		case err != nil:
			return plain("❌ " + err.Error())
		}
		return plain(fmt.Sprintf("✍️ Text updated: %d chars.", info.EditedChars))

	case "summarize":
		if _, ok := c.agent.Document(sessionID); !ok {
			return plain("📚 No PDF loaded. Send one first.")
		}
		if args != "" {
			c.agent.SetFocus(sessionID, args)
		}
		return c.ask(ctx, sessionID, dispatch.Selection{Mode: dispatch.Summarizer}, "")

	case "status":
		return plain(c.status(sessionID))

	default:
		return plain("Unknown command. Try /help.")
	}
}

func (c *Chat) status(sessionID string) string {
	var b strings.Builder
	b.WriteString("Mode: " + c.Selection(sessionID).String())

	info, ok := c.agent.Document(sessionID)
	if !ok {
		b.WriteString("\nPDF: none")
		return b.String()
	}

	fmt.Fprintf(&b, "\nPDF: %s\n📊 Extracted text: %d chars · Current editable text: %d chars", info.SourceName, info.RawChars, info.EditedChars)
	if info.FocusHint != "" {
		b.WriteString("\n🎯 Focus: " + info.FocusHint)
	}
	return b.String()
}

// HandleUpload loads a PDF sent to the chat.
func (c *Chat) HandleUpload(ctx context.Context, sessionID, fileName string, data []byte) Outgoing {
	info, err := c.agent.LoadDocument(ctx, sessionID, fileName, data)
	switch {
	case errors.Is(err, document.ErrTooLittleText):
		return plain("⚠️ Very little text detected. If this is a scanned PDF, use OCR before uploading.")
	case err != nil:
		return plain("❌ Error reading PDF: " + err.Error())
	}

	return plain(fmt.Sprintf("✅ PDF loaded successfully! You can now chat for summaries or explanations.\n📊 Extracted text: %d chars · Current editable text: %d chars\n\nUse /summarize to get a summary.", info.RawChars, info.EditedChars))
}

// HandleFeedback answers a 👍/👎 press. The text is shown only to the presser.
func (c *Chat) HandleFeedback(sessionID, payload string) string {
	index, helpful, ok := parseFeedback(payload)
	if !ok {
		return "Unknown action."
	}

	ack, err := c.agent.Feedback(sessionID, index, helpful)
	if err != nil {
		logger.Debug("feedback rejected", "session", sessionID, "error", err)
		return "That message is no longer available."
	}
	return ack.Text
}

func feedbackPayload(index int, helpful bool) string {
	v := "0"
	if helpful {
		v = "1"
	}
	return feedbackPrefix + strconv.Itoa(index) + ":" + v
}

func parseFeedback(payload string) (index int, helpful bool, ok bool) {
	rest, found := strings.CutPrefix(payload, feedbackPrefix)
	if !found {
		return 0, false, false
	}

	idx, v, found := strings.Cut(rest, ":")
	if !found || (v != "0" && v != "1") {
		return 0, false, false
	}

	index, err := strconv.Atoi(idx)
	if err != nil || index < 0 {
		return 0, false, false
	}
	return index, v == "1", true
}

// parseCommand splits "/mode quizzer" into ("mode", "quizzer"). The name
// ends at the first whitespace rune, so "/edit\n<text>" keeps the text's
// line breaks. A bot name suffix ("/mode@StudyBuddyBot") is dropped.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head := text[1:]
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, args = head[:i], head[i:]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(args), true
}

func modeChoices() string {
	var labels []string
	for _, m := range dispatch.Modes() {
		labels = append(labels, m.Label())
	}
	return strings.Join(labels, ", ")
}

func subModeChoices() string {
	var labels []string
	for _, s := range dispatch.SubModes() {
		labels = append(labels, s.Label())
	}
	return strings.Join(labels, ", ")
}

// splitMessage breaks text into chunks of at most limit runes, preferring
// line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
