package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathos-os/pathos/internal/api"
	"github.com/pathos-os/pathos/internal/config"
	"github.com/pathos-os/pathos/internal/generator"
	"github.com/pathos-os/pathos/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference backend",
	Long:  "Serve the Pathos HTTP API backed by a local SQLite database.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
}

// newGenerator selects the roadmap generator named by the config.
func newGenerator(gc config.GeneratorConfig) generator.Generator {
	if gc.Provider == config.ProviderOpenAI {
		if gc.APIKey == "" {
			slog.Warn("OPENROUTER_API_KEY not set, generated roadmaps will be simulated")
		}
		return generator.NewOpenAI(gc.APIKey, gc.BaseURL, gc.Model)
	}
	return generator.NewMock()
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	slog.Info("configuration loaded")

	// 2. Initialize store (migrations, WAL mode)
	dbPath := config.ExpandHome(cfg.Server.DBPath)
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", dbPath)

	// 3. Initialize roadmap generator
	gen := newGenerator(cfg.Generator)
	slog.Info("generator initialized", "generator", gen.Name())

	// 4. Initialize HTTP router
	handler := api.NewHandler(db, gen, Version)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 5. Configure HTTP server
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 6. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel() // Trigger shutdown on server failure
		}
	}()

	// 7. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 8. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 8a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 8b. Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
