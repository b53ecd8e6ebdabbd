package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/docvault/internal/app"
	"github.com/markdave123-py/docvault/internal/config"
)

func main() {
	// SIGINT/SIGTERM cancel ctx; Run then drains the server.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	log.Printf("docvault is running; %d ingestion workers.", cfg.IngestWorkers)
	if err := application.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
	}
	log.Println("shutting down...")
}
