package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leca/scene-archive/internal/router"
	"github.com/leca/scene-archive/internal/storage"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the Scene Archive HTTP server.
Public routes serve scene lookups, search and similarity. Admin routes
accept sync payloads from the management system and require a bearer token.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (overrides SCENE_LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if cfg.AdminToken == "" {
		slog.Warn("SCENE_ADMIN_TOKEN is not set, admin routes will reject every request")
	}

	store, err := storage.New(cfg.Storage.Type, cfg.Storage.LocalPath, cfg.Storage.PublicURL)
	if err != nil {
		return fmt.Errorf("configuring storage: %w", err)
	}

	srv := router.New(db, store, cfg)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sigChan
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "addr", cfg.ListenAddr, "storage", cfg.Storage.Type)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("starting server: %w", err)
	}
	<-done
	return nil
}
