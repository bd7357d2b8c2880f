// Command pointdeck starts the realtime estimation room server.
//
// It exposes a small REST API for creating and fetching sessions and a
// WebSocket endpoint over which connected clients observe and mutate a
// shared session in near real time. Sessions live in process memory only.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/pointdeck/pointdeck/api"
	"github.com/pointdeck/pointdeck/config"
	"github.com/pointdeck/pointdeck/metrics"
	"github.com/pointdeck/pointdeck/pubsub"
	"github.com/pointdeck/pointdeck/room"
	ws "github.com/pointdeck/pointdeck/transport/websocket"
)

const (
	version = "1.0.0"
	appName = "pointdeck"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	cmd := &cli.Command{
		Name:    appName,
		Usage:   "realtime planning poker session server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen host"},
			&cli.IntFlag{Name: "port", Usage: "listen port"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Flags win over environment.
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store := room.NewStore()
	hub := pubsub.New()
	metrics.RegisterSessionGauges(store.Count, hub.SessionCount)

	gateway := ws.NewGateway(store, hub, logger)
	server := api.NewServer(store, hub, gateway, logger, cfg.CORSOrigins)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hubReaper(ctx, store, hub, cfg.HubReapInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.Addr(),
			"rest", fmt.Sprintf("http://%s/api/v1", cfg.Addr()),
			"websocket", fmt.Sprintf("ws://%s/ws", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

// hubReaper periodically drops hub entries whose session no longer exists
// in the store. A long-lived hub entry for a live session is harmless; one
// for an ended session would otherwise linger forever.
func hubReaper(ctx context.Context, store *room.Store, hub *pubsub.PubSub, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped := 0
			for _, id := range hub.SessionIDs() {
				if _, err := store.Get(id); errors.Is(err, room.ErrSessionNotFound) {
					hub.CleanupSession(id)
					reaped++
				}
			}
			if reaped > 0 {
				logger.Info("reaped stale hub entries", "count", reaped)
			}
		}
	}
}
