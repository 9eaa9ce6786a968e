package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionName    = "farm-session"
	sessionCtxKey  = "session"
	keyUserID      = "user_id"
	keyUserEmail   = "user_email"
	keyUserName    = "user_name"
	keyAdmin       = "admin"
	keyAdminSID    = "admin_sid"
	sessionMaxDays = 30
)

// NewSessionStore returns the cookie store that carries customer and admin
// logins.
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionMiddleware loads the session once per request. A cookie that no
// longer decodes yields a fresh, empty session.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := h.sessions.Get(c.Request, sessionName)
		if err != nil {
			h.logger.Debug("Discarding undecodable session cookie", zap.Error(err))
		}
		c.Set(sessionCtxKey, sess)
		c.Next()
	}
}

func session(c *gin.Context) *sessions.Session {
	return c.MustGet(sessionCtxKey).(*sessions.Session)
}

func (h *Handler) saveSession(c *gin.Context) bool {
	if err := session(c).Save(c.Request, c.Writer); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return false
	}
	return true
}

// currentUserID returns 0 for anonymous visitors.
func currentUserID(c *gin.Context) int64 {
	id, _ := session(c).Values[keyUserID].(int64)
	return id
}

func currentUserEmail(c *gin.Context) string {
	email, _ := session(c).Values[keyUserEmail].(string)
	return email
}

func currentUserName(c *gin.Context) string {
	name, _ := session(c).Values[keyUserName].(string)
	return name
}

func adminSessionID(c *gin.Context) string {
	sid, _ := session(c).Values[keyAdminSID].(string)
	return sid
}

func isAdmin(c *gin.Context) bool {
	ok, _ := session(c).Values[keyAdmin].(bool)
	return ok
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please log in to continue"})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin login required"})
			return
		}
		c.Next()
	}
}
