package auth

import (
	"crypto/subtle"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireSession はセッションを検証するミドルウェアを返します。
func (m *Manager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.Authenticate(c.Request.Context(), sessions.Default(c))
		if err != nil {
			abortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// VerifyCSRF は X-CSRF-Token ヘッダーを検証するミドルウェアです。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		expected := CSRFToken(sessions.Default(c))
		received := c.GetHeader(csrfHeader)
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			abortWithError(c, ErrInvalidCSRF)
			return
		}

		c.Next()
	}
}
