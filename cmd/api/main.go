package main

import (
	"context"
	"log"

	"cv-mapper/internal/bootstrap"
	"cv-mapper/internal/shared/config"
	"cv-mapper/internal/shared/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	if app.DB != nil {
		defer app.DB.Close()
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
