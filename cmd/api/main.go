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
	"github.com/funkoshop/order-service/internal/httpx"
	kafkax "github.com/funkoshop/order-service/internal/kafka"
	"github.com/funkoshop/order-service/internal/logging"
	"github.com/funkoshop/order-service/internal/memstore"
	"github.com/funkoshop/order-service/internal/metrics"
	"github.com/funkoshop/order-service/internal/orders"
	"github.com/funkoshop/order-service/internal/postgres"
	"github.com/funkoshop/order-service/internal/redisx"
	"github.com/funkoshop/order-service/internal/tracing"
	"github.com/funkoshop/order-service/internal/ws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName, cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}

	deps := orders.Deps{Logger: log}

	// Storage
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{})
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		deps.Inventory = &postgres.InventoryRepo{DB: db}
		deps.Orders = &postgres.OrderRepo{DB: db}
		deps.Tx = &postgres.TxManager{DB: db}
		if cfg.CheckClients {
			deps.Clients = &postgres.ClientRepo{DB: db}
		}
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, using in-memory store")
		store := memstore.New()
		deps.Inventory, deps.Orders, deps.Tx = store, store, store
	}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		deps.Cache = redisx.NewOrderCache(rdb, cfg.CacheTTL)
	}

	// Notifications: local websocket clients + the bus
	hub := ws.NewHub(log)
	notifiers := orders.Notifiers{hub}
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.OrdersTopic, 1024, log)
		prod.Start(ctx)
		notifiers = append(notifiers, &kafkax.Notifier{Producer: prod, Service: cfg.ServiceName})
	}
	deps.Notifier = notifiers

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Observer = metrics.NewRecorder(reg)

	svc := orders.NewService(deps)

	router := httpx.NewRouter(reg)
	oh := &httpx.OrdersHandler{Service: svc, Log: log}
	oh.Register(router)
	router.Handle("/ws", hub)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	hub.Close()
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
}
