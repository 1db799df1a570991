package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"qtportal/internal/app"
)

func main() {
	// Load a local .env when present; real deployments set the environment
	// directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
