package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"paywallet/internal/domain" // Error categories

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// UserIDKey is the gin context key holding the verified acting user ID
const UserIDKey = "userID"

// TokenVerifier checks a session token and returns its user ID
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authorize extracts the bearer token from an Authorization header value and
// verifies it. Every failure is reported as domain.ErrUnauthorized.
func Authorize(header string, tokens TokenVerifier) (string, error) {
	scheme, tokenStr, ok := strings.Cut(header, " ")
	// Header must be exactly "Bearer <token>"
	if !ok || scheme != "Bearer" || tokenStr == "" || strings.ContainsAny(tokenStr, " \t") {
		return "", domain.ErrUnauthorized
	}
	userID, err := tokens.Verify(tokenStr)
	if err != nil {
		logrus.WithField("error", err.Error()).Debug("Token rejected")
		return "", domain.ErrUnauthorized
	}
	return userID, nil
}

// JWTAuthMiddleware validates bearer tokens and stores the user ID in the context
func JWTAuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := Authorize(c.GetHeader("Authorization"), tokens)
		if err != nil {
			// Abort with unauthorized status, verification detail stays server-side
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Missing, invalid or expired token"})
			return
		}
		c.Set(UserIDKey, userID) // Store userID in context
		c.Next()                 // Proceed to the next handler
	}
}

// UserID returns the verified acting user ID set by JWTAuthMiddleware
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}
