package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/profilesync/internal/app"
	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/logging"
	"github.com/spf13/afero"
)

func main() {
	cfg := config.New()
	logging.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, afero.NewOsFs())
	srv, err := a.Server()
	if err != nil {
		slog.Error("Failed to build server", "event", "server_init_failure", "error", err)
		os.Exit(1)
	}

	runErr := srv.Start(ctx, cfg.GetServerAddr())
	if err := a.Shutdown(context.Background()); err != nil {
		slog.Error("Shutdown reported errors", "event", "shutdown_failure", "error", err)
	}
	if runErr != nil {
		slog.Error("Server stopped with error", "event", "server_failure", "error", runErr)
		os.Exit(1)
	}
}
