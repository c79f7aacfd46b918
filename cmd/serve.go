package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/marvelous/internal/handlers"
	"github.com/lehigh-university-libraries/marvelous/internal/lookup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the character lookup HTTP API",
		Long: `Starts a JSON API over the catalog client and the local cache.

  GET    /api/characters?q=PREFIX   search, cache the first match, return recent list
  GET    /api/characters/{id}       read one cached character
  DELETE /api/characters/{id}       drop one cached character
  GET    /api/recent                recently viewed characters, newest first`,
		Example: `  # Start server on default port 8888
  marvelous serve

  # Start server on custom port
  marvelous serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			handler := handlers.New(lookup.New(newClient(cfg), store, cfg.MaxEntries))

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Character API available", "addr", addr, "url", "http://localhost"+addr, "cache", cfg.CachePath)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
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

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
