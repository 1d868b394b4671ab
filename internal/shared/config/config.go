package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string   `validate:"required,numeric"`
	Env             string   `validate:"oneof=dev local staging production"`
	CORSAllowOrigin []string `validate:"dive,required"`

	AssetStoreType string `validate:"oneof=local s3"`
	AssetDir       string `validate:"required_if=AssetStoreType local"`
	AWSRegion      string
	S3Bucket       string `validate:"required_if=AssetStoreType s3"`
	S3Prefix       string
	TemplateKey    string `validate:"required"`
	ImageKey       string `validate:"required"`

	ReformulateURL          string        `validate:"required,url"`
	ReformulateTimeout      time.Duration `validate:"gt=0"`
	ReformulateMaxAttempts  int           `validate:"min=1,max=10"`
	ReformulateClientID     string
	ReformulateClientSecret string `validate:"required_with=ReformulateClientID"`
	ReformulateTokenURL     string `validate:"required_with=ReformulateClientID"`

	DatabaseURL    string
	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=0"`
	MaxUploadMB    int64   `validate:"min=1,max=100"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience; real
	// environment variables win.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		AssetStoreType: normalizeStoreType(getEnv("ASSET_STORE", "local")),
		AssetDir:       getEnv("ASSET_DIR", "./assets"),
		AWSRegion:      getEnv("AWS_REGION", ""),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Prefix:       getEnv("S3_PREFIX", ""),
		TemplateKey:    getEnv("TEMPLATE_KEY", "cv_template_skiils.docx"),
		ImageKey:       getEnv("IMAGE_KEY", "img.png"),

		ReformulateURL:          getEnv("REFORMULATE_URL", "http://35.181.31.39:8000/reformulate-cv/"),
		ReformulateTimeout:      getDuration("REFORMULATE_TIMEOUT", 60*time.Second),
		ReformulateMaxAttempts:  getInt("REFORMULATE_MAX_ATTEMPTS", 3),
		ReformulateClientID:     getEnv("REFORMULATE_CLIENT_ID", ""),
		ReformulateClientSecret: getEnv("REFORMULATE_CLIENT_SECRET", ""),
		ReformulateTokenURL:     getEnv("REFORMULATE_TOKEN_URL", ""),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 5),
		MaxUploadMB:    int64(getInt("MAX_UPLOAD_MB", 10)),
	}
}

// Validate checks field constraints. Production additionally requires a
// database for the conversion audit trail.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("invalid configuration: DATABASE_URL is required in production")
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return parsed
}

// getDuration accepts Go durations ("45s") or plain seconds ("45").
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
