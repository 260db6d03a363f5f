package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/youruser/idcards/internal/api"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the card generation HTTP API",
		Example: `  # Start server on default port 8080
  idcards serve

  # Start server on custom port
  idcards serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := api.ConfigFromEnv(slog.Default())
			if err != nil {
				return err
			}
			r := gin.Default()
			api.RegisterRoutes(r, cfg)

			if !cmd.Flags().Changed("port") {
				if p := os.Getenv("PORT"); p != "" {
					port = p
				}
			}
			addr := ":" + port
			server := &http.Server{Addr: addr, Handler: r}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("idcards API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to listen on (default from PORT)")

	return cmd
}
