package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-mapper/internal/conversions"
	"cv-mapper/internal/reformulate"
	"cv-mapper/internal/shared/config"
	"cv-mapper/internal/shared/metrics"
	"cv-mapper/internal/shared/resilience"
	"cv-mapper/internal/shared/server"
	"cv-mapper/internal/shared/storage/db"
	"cv-mapper/internal/shared/storage/object"
	localstore "cv-mapper/internal/shared/storage/object/local"
	s3store "cv-mapper/internal/shared/storage/object/s3"
	"cv-mapper/internal/shared/telemetry"
	"cv-mapper/resume/service"
)

// App holds shared dependencies.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Store             object.Store
	Mapper            *service.Mapper
	ConversionsRepo   conversions.Repo
	ConversionsSvc    *conversions.Service
	ConversionHandler *conversions.Handler
}

// Options overrides pieces of the dependency graph, mostly for tests.
type Options struct {
	Store        object.Store
	Reformulator service.Reformulator
}

// Build loads the template assets and wires the HTTP router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store, err = BuildStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	reformulator := opts.Reformulator
	if reformulator == nil {
		client, err := BuildReformulateClient(cfg)
		if err != nil {
			return nil, err
		}
		reformulator = client
	}

	mapper, err := BuildMapper(ctx, cfg, store, reformulator)
	if err != nil {
		return nil, err
	}

	var repo conversions.Repo
	if sqlDB != nil {
		repo = &conversions.PGRepo{DB: sqlDB}
	} else {
		repo = conversions.NewMemoryRepo()
	}
	svc := &conversions.Service{Repo: repo, Converter: mapper}
	handler := conversions.NewHandler(svc, cfg.MaxUploadBytes())

	app := &App{
		Config:            cfg,
		DB:                sqlDB,
		Store:             store,
		Mapper:            mapper,
		ConversionsRepo:   repo,
		ConversionsSvc:    svc,
		ConversionHandler: handler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		ConversionHandler: handler,
		DB:                sqlDB,
	})
	return app, nil
}

// BuildStore opens the asset store named by ASSET_STORE.
func BuildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.AssetStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.AssetDir), nil
	}
}

// BuildReformulateClient configures the upstream client from cfg.
func BuildReformulateClient(cfg config.Config) (*reformulate.Client, error) {
	policy := resilience.DefaultConfig()
	if cfg.ReformulateMaxAttempts > 0 {
		policy.RetryMaxAttempts = cfg.ReformulateMaxAttempts
	}
	client, err := reformulate.NewClient(reformulate.Options{
		URL:        cfg.ReformulateURL,
		Timeout:    cfg.ReformulateTimeout,
		Resilience: policy,
		OAuth: reformulate.OAuthConfig{
			ClientID:     cfg.ReformulateClientID,
			ClientSecret: cfg.ReformulateClientSecret,
			TokenURL:     cfg.ReformulateTokenURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reformulate client: %w", err)
	}
	client.OnRetry(func(int, error) {
		metrics.IncUpstreamRetry()
	})
	return client, nil
}

// BuildMapper loads the template and image from store and validates them.
func BuildMapper(ctx context.Context, cfg config.Config, store object.Store, client service.Reformulator) (*service.Mapper, error) {
	template, err := object.ReadAll(ctx, store, cfg.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	img, err := object.ReadAll(ctx, store, cfg.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	mapper, err := service.NewMapper(service.Assets{Template: template, Image: img}, client)
	if err != nil {
		return nil, err
	}
	telemetry.Info("bootstrap.assets_loaded", map[string]any{
		"store":          cfg.AssetStoreType,
		"template_key":   cfg.TemplateKey,
		"template_bytes": len(template),
		"image_key":      cfg.ImageKey,
		"image_bytes":    len(img),
	})
	return mapper, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
