package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/response"
)

// SessionCookieName is the cookie that carries the opaque session token.
const SessionCookieName = "sessionToken"

const (
	contextUserKey    = "currentUser"
	contextSessionKey = "currentSession"
)

// Sessions resolves the session cookie to a user when possible. A missing or
// invalid cookie leaves the request unauthenticated; it never aborts.
func Sessions(sessions *auth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err == nil && token != "" {
			if user, session, err := sessions.Validate(token); err == nil {
				c.Set(contextUserKey, user)
				c.Set(contextSessionKey, session)
			}
		}
		c.Next()
	}
}

// RequireAuth aborts with 401 unless a user was resolved from the session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			response.Error(c, errors.ErrAuthenticationRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireVerifiedEmail aborts with 403 unless the user's email is verified.
// It implies RequireAuth.
func RequireVerifiedEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, errors.ErrAuthenticationRequired)
			c.Abort()
			return
		}
		if !user.EmailVerified {
			response.Error(c, errors.ErrEmailVerificationRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored on the context.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// CurrentSession returns the resolved session stored on the context.
func CurrentSession(c *gin.Context) (*models.UserSession, bool) {
	value, exists := c.Get(contextSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.UserSession)
	return session, ok && session != nil
}
