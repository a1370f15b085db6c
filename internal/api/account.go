package api

import (
	"net/http" // HTTP status codes
	"time"     // Time durations

	"paywallet/internal/domain"     // Error categories
	"paywallet/internal/middleware" // Acting user lookup
	"paywallet/internal/service"    // Identity operations
	"paywallet/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// BalanceHandler returns the balance of the authenticated user's account
func BalanceHandler(svc *service.IdentityService, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c) // Get userID from context
		if !ok {
			writeError(c, domain.ErrUnauthorized)
			return
		}
		ctx := c.Request.Context()
		cacheKey := "account:user:" + userID // Cache key for the balance
		var cached string
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"balance": cached})
			return
		}
		bal, err := svc.Balance(ctx, userID)
		if err != nil {
			writeError(c, err)
			return
		}
		amount := bal.StringFixed(2)
		_ = utils.SetCache(ctx, rdb, cacheKey, amount, ttl) // Cache the balance
		c.JSON(http.StatusOK, gin.H{"balance": amount})
	}
}
