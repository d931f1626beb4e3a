package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/cart"
	"github.com/iliyamo/seat-hold/internal/checkout"
	"github.com/iliyamo/seat-hold/internal/config"
	"github.com/iliyamo/seat-hold/internal/database"
	"github.com/iliyamo/seat-hold/internal/handler"
	"github.com/iliyamo/seat-hold/internal/logger"
	"github.com/iliyamo/seat-hold/internal/queue"
	"github.com/iliyamo/seat-hold/internal/repository"
	"github.com/iliyamo/seat-hold/internal/reservation"
	"github.com/iliyamo/seat-hold/internal/router"
	"github.com/iliyamo/seat-hold/internal/worker"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	if err := logger.Init(&logger.Config{
		Level:       cfg.LogLevel,
		ServiceName: "seat-hold",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	err := run(cfg, logger.Get())
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until SIGINT/SIGTERM or a fatal server error.  Every resource
// is released through defers before it returns.
func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Error("database open failed", zap.Error(err))
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		lg.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	seats := repository.NewSeatRepo(db)
	catalog := repository.NewCatalogRepo(db)
	orders := repository.NewOrderRepo(db)

	engine := reservation.NewEngine(seats, cfg.HoldTTL, reservation.WithLogger(logger.Named("reservation")))

	carts := cart.NewRegistry(engine, cart.RegistryConfig{
		TickInterval:      cfg.CartTickInterval,
		ReconcileInterval: cfg.CartReconcileInterval,
		IdleTTL:           cfg.CartSessionIdleTTL,
	}, cart.WithRegistryLogger(logger.Named("cart")))
	go func() { _ = carts.Run(ctx) }()

	sweeper := worker.NewSweeper(engine, worker.SweeperConfig{Interval: cfg.SweepInterval}, logger.Named("sweeper"))
	if cfg.SweepEnabled {
		if err := sweeper.Start(ctx); err != nil {
			lg.Error("sweeper start failed", zap.Error(err))
			return err
		}
		defer sweeper.Stop()
	}

	finOpts := []checkout.Option{checkout.WithLogger(logger.Named("checkout"))}
	if cfg.PublishOrderEvents {
		finOpts = append(finOpts, checkout.WithPublisher(queue.NewPublisher(cfg.RabbitMQURL, logger.Named("publisher"))))
	}
	finalizer := checkout.NewFinalizer(engine, catalog, orders, finOpts...)

	if cfg.OrderConsumerEnabled {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.OrderLogPath, logger.Named("consumer"))
		go func() { _ = consumer.Run(ctx) }()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(logger.RequestLogger(logger.Named("http")))

	router.Register(e, router.Handlers{
		Session:  handler.NewSessionHandler(carts, cfg.JWTSecret, time.Duration(cfg.SessionTTLMin)*time.Minute),
		Catalog:  handler.NewCatalogHandler(catalog, seats),
		Cart:     handler.NewCartHandler(carts, catalog),
		Checkout: handler.NewCheckoutHandler(carts, finalizer),
		Admin: handler.NewAdminHandler(sweeper, orders, cfg.JWTSecret, cfg.AdminPasswordHash,
			time.Duration(cfg.AdminTokenTTLMin)*time.Minute),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Log:       logger.Named("ratelimit"),
	})

	addr := ":" + cfg.Port
	serveErr := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.Duration("hold_ttl", engine.HoldTTL()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server failed", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
