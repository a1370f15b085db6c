package api

import (
	"bytes"         // Body buffering
	"context"       // Context for Redis operations
	"encoding/json" // Strict body decoding
	"errors"        // Trailing data check
	"io"            // Body reading
	"net/http"      // HTTP status codes
	"strings"       // Cache key normalization
	"time"          // Time durations

	"paywallet/internal/domain"     // Importing domain models
	"paywallet/internal/middleware" // Acting user lookup
	"paywallet/internal/service"    // Identity operations
	"paywallet/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// directoryGenKey holds the generation that versions every cached search result
const directoryGenKey = "directory:gen"

// AuthResponse is returned by signup and signin
type AuthResponse struct {
	Message string `json:"message"` // Human readable outcome
	Token   string `json:"token"`   // Session token
}

// invalidateDirectory drops cached search results after a mutation
func invalidateDirectory(ctx context.Context, rdb *redis.Client) {
	if err := utils.BumpGeneration(ctx, rdb, directoryGenKey); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate directory cache")
	}
}

// SignupHandler registers a user and returns a session token
func SignupHandler(svc *service.IdentityService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignupInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			writeError(c, domain.ErrInvalidInput)
			return
		}
		tok, err := svc.Signup(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		invalidateDirectory(c.Request.Context(), rdb)
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Message: "User created successfully", Token: tok})
	}
}

// SigninHandler authenticates a user and returns a session token
func SigninHandler(svc *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SigninInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, domain.ErrInvalidInput)
			return
		}
		tok, err := svc.Signin(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Message: "User signed-in successfully", Token: tok})
	}
}

// UpdateProfileHandler updates the profile of the token's owner.
// Unknown body fields are rejected, so the body can never choose the target.
func UpdateProfileHandler(svc *service.IdentityService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c) // Get userID set by the auth gate
		if !ok {
			writeError(c, domain.ErrUnauthorized)
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, domain.ErrInvalidInput)
			return
		}
		var patch domain.ProfilePatch
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			writeError(c, domain.ErrInvalidInput)
			return
		}
		// The body must hold exactly one JSON value
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			writeError(c, domain.ErrInvalidInput)
			return
		}
		if err := svc.UpdateProfile(c.Request.Context(), userID, patch); err != nil {
			writeError(c, err)
			return
		}
		invalidateDirectory(c.Request.Context(), rdb)
		c.JSON(http.StatusOK, gin.H{"message": "Updated successfully"})
	}
}

// SearchHandler lists users whose first or last name contains ?filter=
func SearchHandler(svc *service.IdentityService, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		filter := c.Query("filter")

		// Cache key is versioned by the directory generation
		cacheKey := ""
		if gen, err := utils.CacheGeneration(ctx, rdb, directoryGenKey); err == nil {
			cacheKey = "directory:" + gen + ":filter=" + strings.ToLower(filter)
		} else {
			logrus.WithField("error", err.Error()).Warn("Directory cache unavailable")
		}
		if cacheKey != "" {
			var cached []domain.DirectoryEntry
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, gin.H{"users": cached})
				return
			}
		}

		users := []domain.DirectoryEntry{}
		for entry, err := range svc.SearchDirectory(ctx, filter) {
			if err != nil {
				writeError(c, err)
				return
			}
			users = append(users, entry)
		}
		if cacheKey != "" {
			_ = utils.SetCache(ctx, rdb, cacheKey, users, ttl) // Cache the result
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}
