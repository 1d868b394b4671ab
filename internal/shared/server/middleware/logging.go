package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/shared/metrics"
	"cv-mapper/internal/shared/telemetry"
)

// Context keys handlers set to enrich the request log line.
const (
	ConversionIDKey = "conversionId"
	FailureKindKey  = "failureKind"
)

// Logging emits a structured log per request and counts it.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status)
		telemetry.Info("request.complete", map[string]any{
			"request_id":    RequestIDFromContext(c),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"route":         c.FullPath(),
			"status":        status,
			"duration_ms":   float64(latency.Microseconds()) / 1000.0,
			"conversion_id": c.GetString(ConversionIDKey),
			"failure_kind":  c.GetString(FailureKindKey),
			"bytes_out":     c.Writer.Size(),
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
		})
	}
}
