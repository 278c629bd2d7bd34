package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/dispatch"
	"github.com/bowerhall/studybuddy/internal/document/documenttest"
	"github.com/bowerhall/studybuddy/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct {
	entered chan struct{}
	block   chan struct{}
}

func (s *stubBackend) Explain(ctx context.Context, message, history string) (string, error) {
	if s.block != nil {
		s.entered <- struct{}{}
		<-s.block
	}
	return "explained: " + message, nil
}

func (s *stubBackend) Summarize(ctx context.Context, text, history, focus, instruction string) (string, error) {
	return "summary [" + focus + "]", nil
}

func (s *stubBackend) GenerateQuestions(ctx context.Context, message, history string) (string, error) {
	return "1. Why?", nil
}

func (s *stubBackend) SolveQuestions(ctx context.Context, message, history string) (string, error) {
	return "because", nil
}

func (s *stubBackend) EvaluateAnswers(ctx context.Context, questions, answers, history string) (string, error) {
	return "graded: " + questions + " / " + answers, nil
}

// client replays the session cookie like a browser would.
type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newClient(t *testing.T, backend dispatch.Backend) *client {
	a := agent.New(session.NewStore(), dispatch.New(backend))
	return &client{t: t, router: NewRouter(Opts{Agent: a})}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()

	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessionCookie {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) json(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(name string, data []byte, focus string) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	if focus != "" {
		require.NoError(c.t, mw.WriteField("focus", focus))
	}
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const studyText = "Mitochondria produce ATP through cellular respiration in the inner membrane."

func TestHealthz(t *testing.T) {
	c := newClient(t, &stubBackend{})
	w := c.json(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, c.cookie, "healthz must not issue a session")
}

func TestModes(t *testing.T) {
	c := newClient(t, &stubBackend{})
	w := c.json(http.MethodGet, "/api/modes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "🧩 Quizzer")
	assert.Contains(t, w.Body.String(), "✅ Evaluate Answers")
}

func TestChatIssuesSessionAndKeepsHistory(t *testing.T) {
	c := newClient(t, &stubBackend{})

	w := c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "💡 Explainer", Message: "what is ATP?"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)

	body := decode(t, w)
	assert.Equal(t, "explained: what is ATP?", body["reply"])
	assert.Equal(t, float64(1), body["index"])
	assert.Equal(t, "💡 Explainer", body["mode"])

	w = c.json(http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]any)
	assert.Len(t, msgs, 2)

	other := newClient(t, &stubBackend{})
	other.router = c.router
	w = other.json(http.MethodGet, "/api/messages", nil)
	assert.Empty(t, decode(t, w)["messages"])
}

func TestChatQuizzerWarnings(t *testing.T) {
	c := newClient(t, &stubBackend{})

	w := c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "quizzer", SubMode: "evaluate", Message: "Q1: 2+2? 4"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dispatch.MsgMissingSeparator, decode(t, w)["reply"])

	w = c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "quizzer", SubMode: "evaluate", Message: "Q1: 2+2?---4"})
	assert.Equal(t, "graded: Q1: 2+2? / 4", decode(t, w)["reply"])

	w = c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "🎲 Random", Message: "hi"})
	assert.Equal(t, dispatch.MsgUnknownMode, decode(t, w)["reply"])
}

func TestChatBadRequest(t *testing.T) {
	c := newClient(t, &stubBackend{})

	w := c.json(http.MethodPost, "/api/chat", map[string]string{"message": "no mode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, c.do(req).Code)
}

func TestChatBusySession(t *testing.T) {
	backend := &stubBackend{entered: make(chan struct{}), block: make(chan struct{})}
	c := newClient(t, backend)

	// establish the cookie first
	c.json(http.MethodGet, "/api/messages", nil)
	require.NotNil(t, c.cookie)

	done := make(chan int)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"mode":"explainer","message":"slow"}`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(c.cookie)
		w := httptest.NewRecorder()
		c.router.ServeHTTP(w, req)
		done <- w.Code
	}()

	select {
	case <-backend.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("slow request never reached the backend")
	}

	w := c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "explainer", Message: "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, agent.BusyMessage, decode(t, w)["error"])

	close(backend.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestResetKeepsDocument(t *testing.T) {
	c := newClient(t, &stubBackend{})

	require.Equal(t, http.StatusOK, c.upload("bio.pdf", documenttest.BuildPDF(studyText), "").Code)
	c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "explainer", Message: "hi"})

	w := c.json(http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.json(http.MethodGet, "/api/messages", nil)
	assert.Empty(t, decode(t, w)["messages"])

	w = c.json(http.MethodGet, "/api/document", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	c := newClient(t, &stubBackend{})

	w := c.json(http.MethodGet, "/api/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.upload("bio.pdf", documenttest.BuildPDF(studyText), "exam topics")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info := decode(t, w)
	assert.Equal(t, "bio.pdf", info["source_name"])
	assert.Equal(t, "exam topics", info["focus"])

	w = c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "summarizer"})
	assert.Equal(t, "summary [exam topics]", decode(t, w)["reply"])

	w = c.json(http.MethodPut, "/api/document", map[string]string{"edited_text": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	edited := "Only the Krebs cycle section matters for this summary, please focus there."
	w = c.json(http.MethodPut, "/api/document", map[string]string{"edited_text": edited, "focus": "krebs"})
	require.Equal(t, http.StatusOK, w.Code)
	info = decode(t, w)
	assert.Equal(t, edited, info["edited_text"])
	assert.Equal(t, "krebs", info["focus"])

	w = c.json(http.MethodDelete, "/api/document", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = c.json(http.MethodPut, "/api/document", map[string]string{"focus": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsBadPDFs(t *testing.T) {
	c := newClient(t, &stubBackend{})

	w := c.upload("scan.pdf", documenttest.BuildPDF("tiny"), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Not enough valid text")

	w = c.upload("junk.pdf", []byte("not a pdf"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/document", strings.NewReader(""))
	assert.Equal(t, http.StatusBadRequest, c.do(req).Code)
}

func TestFeedback(t *testing.T) {
	c := newClient(t, &stubBackend{})

	c.json(http.MethodPost, "/api/chat", chatRequest{Mode: "explainer", Message: "hi"})

	w := c.json(http.MethodPost, "/api/feedback", map[string]any{"index": 1, "helpful": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Thanks for the feedback!", decode(t, w)["message"])

	w = c.json(http.MethodPost, "/api/feedback", map[string]any{"index": 0, "helpful": false})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.json(http.MethodPost, "/api/feedback", map[string]any{"index": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.json(http.MethodGet, "/api/messages", nil)
	assert.Len(t, decode(t, w)["messages"], 2, "feedback must not touch history")
}
