// Command ordersvc runs the order lifecycle HTTP service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nsridhar76/go-orderflow/internal/api"
	"github.com/nsridhar76/go-orderflow/internal/cache"
	"github.com/nsridhar76/go-orderflow/internal/config"
	"github.com/nsridhar76/go-orderflow/internal/engine"
	"github.com/nsridhar76/go-orderflow/internal/messaging"
	"github.com/nsridhar76/go-orderflow/internal/messaging/kafka"
	"github.com/nsridhar76/go-orderflow/internal/messaging/noop"
	"github.com/nsridhar76/go-orderflow/internal/service"
	"github.com/nsridhar76/go-orderflow/internal/store"
	"github.com/nsridhar76/go-orderflow/internal/store/memory"
	"github.com/nsridhar76/go-orderflow/internal/store/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var orders store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		orders = pg
		logger.Info("using postgres store")
	} else {
		orders = memory.New()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	var orderCache *cache.OrderCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		orderCache = cache.New(client, cfg.CacheTTL, logger)
		logger.Info("order cache enabled", "addr", cfg.RedisAddr)
	}

	var publisher messaging.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kp.Close()
		publisher = kp
		logger.Info("kafka publisher enabled", "topic", cfg.KafkaTopic)
	} else {
		publisher = noop.Publisher{}
		logger.Warn("KAFKA_BROKERS not set, events are dropped")
	}

	eng := engine.New(orders, logger)
	builder := messaging.NewEnvelopeBuilder(cfg.EventSource)
	svc := service.New(orders, eng, builder, publisher, orderCache, logger)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(svc, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
