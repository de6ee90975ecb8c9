package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pubsub/core/broker"
	"github.com/dmitrymomot/pubsub/core/config"
	"github.com/dmitrymomot/pubsub/core/logger"
	"github.com/dmitrymomot/pubsub/core/server"
	"github.com/dmitrymomot/pubsub/transport/rest"
	"github.com/dmitrymomot/pubsub/transport/ws"
)

type appConfig struct {
	Logger logger.Config
	Broker broker.Config
	WS     ws.Config
	Server server.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Logger)

	b := broker.NewFromConfig(cfg.Broker,
		broker.WithLogger(log.With(logger.Component("broker"))))

	mux := http.NewServeMux()
	rest.New(b, rest.WithLogger(log.With(logger.Component("rest")))).Register(mux)
	mux.Handle("GET /ws", ws.NewFromConfig(b, cfg.WS,
		ws.WithLogger(log.With(logger.Component("ws")))))

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		log.Error("invalid server configuration", logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(ctx, mux))
	g.Go(func() error {
		<-ctx.Done()

		// Stop accepting mutations first so connected clients start draining,
		// then run the notify/grace/detach sequence.
		b.InitiateShutdown()

		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return b.Shutdown(drainCtx)
	})

	log.Info("pubsub service ready",
		logger.Component("main"),
		logger.ID("addr", cfg.Server.Addr))

	if err := g.Wait(); err != nil {
		log.Error("service exited with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("pubsub service stopped")
}
