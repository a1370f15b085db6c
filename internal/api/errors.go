package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"paywallet/internal/domain"  // Error categories
	"paywallet/internal/service" // Validation errors

	"github.com/gin-gonic/gin" // Gin web framework
)

// writeError renders err as {"error": category, "message": text}.
// Store failures never expose their cause.
func writeError(c *gin.Context, err error) {
	var inputErr *service.InputError
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidInput", "message": inputErr.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidInput", "message": "Invalid request"})
	case errors.Is(err, domain.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": "DuplicateIdentity", "message": "Email already taken"})
	case errors.Is(err, domain.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "AuthenticationFailed", "message": "Invalid username or password"})
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Missing, invalid or expired token"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFound", "message": "User not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "StoreFailure", "message": "Something went wrong, try again later"})
	}
}
