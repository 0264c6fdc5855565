package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/funkoshop/order-service/internal/config"
	kafkax "github.com/funkoshop/order-service/internal/kafka"
	"github.com/funkoshop/order-service/internal/logging"
	"github.com/funkoshop/order-service/internal/notifier"
	"github.com/funkoshop/order-service/internal/redisx"
	"github.com/funkoshop/order-service/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-notifier"
	log := logging.New(name, cfg.LogLevel)

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		c := redisx.New(cfg.RedisAddr)
		defer c.Close()
		rdb = c
	}

	hub := ws.NewHub(log)
	relay := &notifier.Relay{Sink: hub, Redis: rdb, Name: name, Log: log}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, cfg.OrdersTopic, cfg.NotifierWorkers, log)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/ws", hub)
	srv := &http.Server{Addr: cfg.WSAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("group", cfg.NotifierGroup).Str("topic", cfg.OrdersTopic).Int("workers", cfg.NotifierWorkers).Msg("consumer started")
		return cons.Start(gctx, relay.HandleOrderEvent)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.WSAddr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		hub.Close()
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("notifier exited")
		os.Exit(1)
	}
}
