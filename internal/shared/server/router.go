package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/conversions"
	"cv-mapper/internal/shared/config"
	"cv-mapper/internal/shared/metrics"
	"cv-mapper/internal/shared/server/middleware"
	"cv-mapper/internal/shared/server/respond"
	"cv-mapper/internal/shared/storage/db"
)

const (
	rateGroupConvert = "CONVERT"
	rateGroupRead    = "READ"
)

// RouterDeps provides handlers and shared state for the router.
type RouterDeps struct {
	Config            config.Config
	ConversionHandler *conversions.Handler
	DB                *sql.DB
	// Limiter overrides the rate limiter clock in tests.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB))

	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: rateGroupRead,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost {
				return rateGroupConvert
			}
			return rateGroupRead
		},
		Limiter: deps.Limiter,
		Rules: map[string]middleware.RateLimitRule{
			rateGroupConvert: {Rate: cfg.RateLimitRPS, Burst: burst},
			rateGroupRead:    {Rate: cfg.RateLimitRPS * 10, Burst: burst * 10},
		},
	}))

	if deps.ConversionHandler != nil {
		deps.ConversionHandler.RegisterRoutes(api)
	}

	return r
}

func healthHandler(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if database == nil {
			respond.OK(c, gin.H{"ok": true, "database": "disabled"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, database, 2*time.Second); err != nil {
			respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "down"})
			return
		}
		respond.OK(c, gin.H{"ok": true, "database": "up"})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
