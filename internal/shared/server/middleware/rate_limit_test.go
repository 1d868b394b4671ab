package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/shared/server/respond"
)

func TestRateLimitReadsHigherThanConversions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.Request.Method == http.MethodGet {
			return "READ"
		}
		return "DEFAULT"
	}

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 2},
			"READ":    {Rate: 5, Burst: 10},
		},
	}))

	r.GET("/api/v1/conversions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/v1/conversions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/conv-1", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("read request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("conversion request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("conversion request 3 expected 429, got %d", resp.Code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			return "DEFAULT"
		},
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 1},
		},
	}))
	r.GET("/api/v1/limited", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil)
	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, req1)
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil)
	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if got := resp2.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}

	var payload respond.ErrorResponse
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected code rate_limited, got %q", payload.Error.Code)
	}
	details, ok := payload.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %T", payload.Error.Details)
	}
	if _, ok := details["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in details")
	}
}

func TestRateLimitSeparatesCallers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		KeyFor:  func(c *gin.Context) string { return c.GetHeader("X-Caller") },
		Limiter: NewRateLimiter(func() time.Time { return now }),
		Rules:   map[string]RateLimitRule{"DEFAULT": {Rate: 1, Burst: 1}},
	}))
	r.POST("/api/v1/conversions", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	for _, caller := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions", nil)
		req.Header.Set("X-Caller", caller)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusAccepted {
			t.Fatalf("caller %s expected 202, got %d", caller, resp.Code)
		}
	}
}

func TestRateLimiterForgetsIdleCallers(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 2}

	for _, key := range []string{"10.0.0.1|DEFAULT", "10.0.0.2|DEFAULT", "10.0.0.3|DEFAULT"} {
		if ok, _ := limiter.Allow(key, rule); !ok {
			t.Fatalf("expected first request for %s to pass", key)
		}
	}
	if limiter.Len() != 3 {
		t.Fatalf("expected 3 buckets, got %d", limiter.Len())
	}

	now = now.Add(limiterIdleTTL + time.Second)
	if ok, _ := limiter.Allow("10.0.0.4|DEFAULT", rule); !ok {
		t.Fatalf("expected new caller to pass")
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected idle buckets to be dropped, got %d", limiter.Len())
	}
}

func TestRateLimiterKeepsDrainedBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	slow := RateLimitRule{Rate: 0.001, Burst: 1}

	if ok, _ := limiter.Allow("10.0.0.1|DEFAULT", slow); !ok {
		t.Fatalf("expected first request to pass")
	}
	now = now.Add(limiterIdleTTL + time.Second)
	limiter.Allow("10.0.0.2|DEFAULT", slow)
	if ok, _ := limiter.Allow("10.0.0.1|DEFAULT", slow); ok {
		t.Fatalf("expected drained bucket to survive the sweep")
	}
}
