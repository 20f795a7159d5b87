package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"showdown-bot/internal/auth"
	"showdown-bot/internal/bridge"
	"showdown-bot/internal/config"
	"showdown-bot/internal/logging"
	"showdown-bot/internal/queue"
	"showdown-bot/internal/session"
	"showdown-bot/internal/status"
	"showdown-bot/internal/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("client stopped")
		os.Exit(1)
	}
	logger.Info().Msg("client stopped")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	server, err := transport.Dial(ctx, cfg.ServerURL, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	br, err := openBridge(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer br.Close()

	sc := session.NewContext(server.Write, br.Write)
	login := auth.NewClient(cfg.LoginURL, cfg.LoginTimeout, logger)
	creds := session.Credentials{Username: cfg.Username, Password: cfg.Password}
	machine, err := session.NewMachine(sc, login, creds, logger)
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}

	// Both producers feed one queue; the dispatcher is its only consumer.
	q := queue.New[string]()
	dispatcher := session.NewDispatcher(q, machine, logger)
	enqueue := func(item string) { q.Enqueue(item) }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, enqueue) })
	g.Go(func() error { return br.Listen(gctx, enqueue) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	if cfg.StatusAddr != "" {
		g.Go(func() error { return status.New(dispatcher, logger).ListenAndServe(gctx, cfg.StatusAddr) })
	}

	logger.Info().
		Str("server", cfg.ServerURL).
		Str("bridge", cfg.BridgeMode).
		Str("session", dispatcher.ID()).
		Msg("client running")
	return g.Wait()
}

func openBridge(ctx context.Context, cfg config.Config, logger zerolog.Logger) (bridge.Bridge, error) {
	switch cfg.BridgeMode {
	case config.BridgeProcess:
		return bridge.StartProcess(ctx, cfg.BridgeCommand[0], cfg.BridgeCommand[1:], logger)
	default:
		return bridge.NewFIFO(cfg.BridgeInPath, cfg.BridgeOutPath, logger)
	}
}
