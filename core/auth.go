package core

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const authContextKey = "auth"

// AuthContext is the caller identity attached to a request by AuthGate.
type AuthContext struct {
	Subject int64
}

// AuthGate authenticates protected routes. Every failure aborts with a bare
// 401 and attaches no error, so ResponseTranslator leaves the response alone.
func AuthGate(codec *TokenCodec, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = discardLogger()
	}
	return func(c *gin.Context) {
		token, ok := parseAuthorization(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("auth rejected", "reason", "authorization header", "path", c.FullPath())
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, err := codec.Verify(token)
		if err != nil {
			logger.Debug("auth rejected", "reason", "token", "path", c.FullPath())
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		SetAuthContext(c, AuthContext{Subject: claims.Subject})
		c.Next()
	}
}

// parseAuthorization accepts "Bearer <token>" and "Token <token>".
func parseAuthorization(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || token == "" || strings.ContainsRune(token, ' ') {
		return "", false
	}
	switch scheme {
	case "Bearer", "Token":
		return token, true
	default:
		return "", false
	}
}

// SetAuthContext stores ac on the request. AuthGate is its only caller
// outside tests.
func SetAuthContext(c *gin.Context, ac AuthContext) {
	c.Set(authContextKey, ac)
}

// AuthContextFrom returns the identity set by AuthGate.
func AuthContextFrom(c *gin.Context) (AuthContext, bool) {
	v, ok := c.Get(authContextKey)
	if !ok {
		return AuthContext{}, false
	}
	ac, ok := v.(AuthContext)
	return ac, ok
}
