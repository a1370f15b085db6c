package api

import (
	"net/http" // HTTP status codes
	"slices"   // Origin lookup
	"time"     // Time durations

	"paywallet/internal/middleware" // Auth gate
	"paywallet/internal/service"    // Identity operations

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// RouterDeps bundles what the HTTP layer needs
type RouterDeps struct {
	DB          *gorm.DB                 // Database, pinged by the health check
	Redis       *redis.Client            // Optional cache, nil disables it
	Identity    *service.IdentityService // Identity operations
	Tokens      middleware.TokenVerifier // Auth gate token check
	Prefix      string                   // Route prefix such as /api/v1
	CacheTTL    time.Duration            // Lifetime of cached reads
	CORSOrigins []string                 // Allowed origins, "*" allows all
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.Default() // Gin router instance

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	if len(d.CORSOrigins) == 0 || slices.Contains(d.CORSOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", HealthHandler(d.DB)) // Liveness and DB check

	api := r.Group(d.Prefix)

	// User routes
	user := api.Group("/user")
	user.POST("/signup", SignupHandler(d.Identity, d.Redis))                                           // Signup endpoint
	user.POST("/signin", SigninHandler(d.Identity))                                                    // Signin endpoint
	user.GET("/bulk", SearchHandler(d.Identity, d.Redis, d.CacheTTL))                                  // Directory search endpoint
	user.PUT("", middleware.JWTAuthMiddleware(d.Tokens), UpdateProfileHandler(d.Identity, d.Redis)) // Profile update endpoint

	// Account routes (protected by JWT)
	account := api.Group("/account")
	account.Use(middleware.JWTAuthMiddleware(d.Tokens))
	account.GET("/balance", BalanceHandler(d.Identity, d.Redis, d.CacheTTL)) // Balance endpoint

	return r
}

// HealthHandler reports whether the database answers
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
