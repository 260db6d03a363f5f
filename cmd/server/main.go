package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/youruser/idcards/internal/api"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := api.ConfigFromEnv(slog.Default())
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	r := gin.Default()
	api.RegisterRoutes(r, cfg)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Starting server", "url", "http://localhost:"+port, "font", cfg.Font.Name, "workers", cfg.Workers)
	if err := r.Run(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}
