package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/holdingsledger/internal/cache"
	"github.com/efreitasn/holdingsledger/internal/config"
	"github.com/efreitasn/holdingsledger/internal/engine"
	"github.com/efreitasn/holdingsledger/internal/events"
	"github.com/efreitasn/holdingsledger/internal/handler"
	"github.com/efreitasn/holdingsledger/internal/service"
	"github.com/efreitasn/holdingsledger/internal/store"
	"github.com/efreitasn/holdingsledger/internal/store/mongostore"
)

// positionsCacheCost bounds the positions cache; it holds one entry.
const positionsCacheCost = 16

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      brokers,
			Topic:        cfg.KafkaTopic,
			WriteTimeout: cfg.WriteTimeout,
		}, logger)
		logger.Info("order feed enabled", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close publisher", zap.Error(err))
		}
	}()

	positionsCache, err := cache.New(positionsCacheCost, cfg.PositionsCacheTTL)
	if err != nil {
		return fmt.Errorf("positions cache: %w", err)
	}
	defer positionsCache.Close()

	eng := engine.New(backend)
	orderSvc := service.NewOrderService(eng, backend, publisher, service.SellValidation(cfg.SellValidation))
	holdingSvc := service.NewHoldingService(backend)
	positionSvc := service.NewPositionService(backend, positionsCache)

	router := handler.NewRouter(orderSvc, holdingSvc, positionSvc, logger, cfg.CORSOrigin)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("sell_validation", cfg.SellValidation),
			zap.Bool("positions_cache", positionsCache.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openBackend returns the MongoDB store when MONGO_URL is set and the
// in-memory store otherwise.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Backend, func(), error) {
	if cfg.MongoURL == "" {
		logger.Info("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}

	ms, err := mongostore.Open(ctx, mongostore.Options{
		URI:          cfg.MongoURL,
		Database:     cfg.MongoDatabase,
		Transactions: cfg.MongoTransactions,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open mongo: %w", err)
	}
	logger.Info("using mongo store",
		zap.String("database", cfg.MongoDatabase),
		zap.Bool("transactions", cfg.MongoTransactions),
	)
	if !cfg.MongoTransactions {
		logger.Warn("mongo transactions disabled; a crash between the order and holding writes can leave them inconsistent")
	}

	return ms, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := ms.Close(ctx); err != nil {
			logger.Warn("close mongo", zap.Error(err))
		}
	}, nil
}
