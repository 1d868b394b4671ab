package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.POST("/api/v1/conversions", func(c *gin.Context) {
		c.Set(ConversionIDKey, "conv-1")
		c.Set(FailureKindKey, "upstream_error")
		c.JSON(http.StatusBadGateway, gin.H{"ok": false})
	})

	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "conversion_id", "failure_kind", "duration_ms", "status", "route"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["request_id"] != "req-123" {
		t.Fatalf("unexpected request_id: %v", payload["request_id"])
	}
	if payload["conversion_id"] != "conv-1" {
		t.Fatalf("unexpected conversion_id: %v", payload["conversion_id"])
	}
	if payload["route"] != "/api/v1/conversions" {
		t.Fatalf("unexpected route: %v", payload["route"])
	}
	if payload["status"] != float64(http.StatusBadGateway) {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if resp.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("expected request id echoed in header")
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	id := resp.Header().Get("X-Request-Id")
	if len(id) != 36 || resp.Body.String() != id {
		t.Fatalf("expected generated uuid, header %q body %q", id, resp.Body.String())
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"internal"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if !strings.Contains(buf.String(), `"msg":"panic"`) {
		t.Fatalf("expected panic log, got %s", buf.String())
	}
}
