// Package main implements the entry point for the CardVault API server,
// which drives the verification and reprocessing workflow for AI-extracted
// trading card photos.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; environment variables may already be
	// set by the deployment.
	_ = godotenv.Load()

	app, err := newApplication(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
