package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bowerhall/studybuddy/internal/logger"
)

const (
	sessionCookie = "studybuddy_session"
	sessionKey    = "session_id"
	loggerKey     = "logger"
	cookieMaxAge  = 30 * 24 * 60 * 60
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := logger.With("request_id", uuid.NewString(), "method", c.Request.Method, "path", c.FullPath())
		c.Set(loggerKey, log)

		c.Next()

		log.Debug("request served", "status", c.Writer.Status(), "took", time.Since(start))
	}
}

func requestLog(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		return v.(*slog.Logger)
	}
	return logger.With()
}

// withSession resolves the caller's session from its cookie, issuing a new
// one when absent or malformed.
func (h *handlers) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, id, cookieMaxAge, "/", "", h.secureCookie, true)
		}

		c.Set(sessionKey, "web:"+id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
