package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/dispatch"
	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/feedback"
	"github.com/bowerhall/studybuddy/internal/session"
)

const msgTooLittleText = "❌ Not enough valid text to summarize. Please check the extracted content."

type handlers struct {
	agent        *agent.Agent
	secureCookie bool
}

func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", h.withSession())
	api.GET("/modes", h.modes)
	api.POST("/chat", h.chat)
	api.GET("/messages", h.messages)
	api.POST("/reset", h.reset)
	api.GET("/document", h.getDocument)
	api.POST("/document", h.uploadDocument)
	api.PUT("/document", h.editDocument)
	api.DELETE("/document", h.clearDocument)
	api.POST("/feedback", h.feedback)
}

type option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (h *handlers) modes(c *gin.Context) {
	var modes, subModes []option
	for _, m := range dispatch.Modes() {
		modes = append(modes, option{ID: string(m), Label: m.Label()})
	}
	for _, s := range dispatch.SubModes() {
		subModes = append(subModes, option{ID: string(s), Label: s.Label()})
	}
	c.JSON(http.StatusOK, gin.H{"modes": modes, "sub_modes": subModes})
}

type chatRequest struct {
	Mode    string `json:"mode" binding:"required"`
	SubMode string `json:"sub_mode"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Index int    `json:"index"`
	Mode  string `json:"mode"`
}

func (h *handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sel := dispatch.Selection{
		Mode:    dispatch.ParseMode(req.Mode),
		SubMode: dispatch.ParseSubMode(req.SubMode),
	}

	reply, err := h.agent.Process(c.Request.Context(), sessionID(c), sel, req.Message)
	if errors.Is(err, agent.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": agent.BusyMessage})
		return
	}
	if err != nil {
		requestLog(c).Error("chat failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chatResponse{Reply: reply.Text, Index: reply.Index, Mode: sel.String()})
}

type messageJSON struct {
	Index   int    `json:"index"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *handlers) messages(c *gin.Context) {
	msgs := h.agent.Messages(sessionID(c))

	out := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = messageJSON{Index: i, Role: string(m.Role), Content: m.Content}
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *handlers) reset(c *gin.Context) {
	h.agent.Reset(sessionID(c))
	c.JSON(http.StatusOK, gin.H{"message": "New chat started!"})
}

func (h *handlers) getDocument(c *gin.Context) {
	info, ok := h.agent.Document(sessionID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNoDocument.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) uploadDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fh.Size > document.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := document.ReadUpload(f)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}

	if focus, ok := c.GetPostForm("focus"); ok {
		h.agent.SetFocus(sessionID(c), focus)
	}

	info, err := h.agent.LoadDocument(c.Request.Context(), sessionID(c), fh.Filename, data)
	switch {
	case errors.Is(err, document.ErrTooLittleText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msgTooLittleText, "document": info})
	case err != nil:
		requestLog(c).Warn("pdf extraction failed", "name", fh.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "❌ Error reading PDF: " + err.Error()})
	default:
		c.JSON(http.StatusOK, info)
	}
}

type editRequest struct {
	EditedText *string `json:"edited_text"`
	Focus      *string `json:"focus"`
}

func (h *handlers) editDocument(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := sessionID(c)
	if _, ok := h.agent.Document(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNoDocument.Error()})
		return
	}

	if req.EditedText != nil {
		info, err := h.agent.EditDocument(id, *req.EditedText)
		if errors.Is(err, document.ErrTooLittleText) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msgTooLittleText, "document": info})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.Focus != nil {
		h.agent.SetFocus(id, *req.Focus)
	}

	info, _ := h.agent.Document(id)
	c.JSON(http.StatusOK, info)
}

func (h *handlers) clearDocument(c *gin.Context) {
	h.agent.ClearDocument(sessionID(c))
	c.Status(http.StatusNoContent)
}

type feedbackRequest struct {
	Index   *int  `json:"index" binding:"required"`
	Helpful *bool `json:"helpful" binding:"required"`
}

func (h *handlers) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ack, err := h.agent.Feedback(sessionID(c), *req.Index, *req.Helpful)
	if errors.Is(err, feedback.ErrUnknownMessage) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": ack.Text, "helpful": ack.Helpful})
}
