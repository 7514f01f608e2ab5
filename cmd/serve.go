package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/catscan/internal/detect"
	"github.com/lehigh-university-libraries/catscan/internal/handlers"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the catscan HTTP API on the specified port.

The API looks barcodes up, fills forms posted as JSON and decodes barcodes
from uploaded photos. Downloaded covers are served under /media/.`,
		Example: `  # Start server on default port 8888
  catscan serve

  # Start server on custom port
  catscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, media, err := a.service()
			if err != nil {
				return err
			}
			detector, err := detect.New(a.cfg.Scanner.Formats...)
			if err != nil {
				return err
			}

			handler := handlers.New(handlers.Deps{
				Service:  svc,
				Detector: detector,
				Media:    media,
			})

			addr := ":" + a.cfg.Server.Port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Router(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("catscan API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
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

	cmd.Flags().StringP("port", "p", "8888", "Port to listen on")

	return cmd
}
