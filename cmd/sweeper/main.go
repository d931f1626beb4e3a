// Command sweeper releases lapsed seat holds.  With -once it performs a
// single sweep and exits, for use from cron; otherwise it sweeps every
// SWEEP_INTERVAL until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold/internal/config"
	"github.com/iliyamo/seat-hold/internal/database"
	"github.com/iliyamo/seat-hold/internal/logger"
	"github.com/iliyamo/seat-hold/internal/repository"
	"github.com/iliyamo/seat-hold/internal/reservation"
	"github.com/iliyamo/seat-hold/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()
	if err := logger.Init(&logger.Config{Level: cfg.LogLevel, ServiceName: "seat-sweeper", Development: cfg.IsDevelopment()}); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	err := run(cfg, logger.Get(), *once)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, lg *zap.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Error("database open failed", zap.Error(err))
		return err
	}
	defer db.Close()

	engine := reservation.NewEngine(repository.NewSeatRepo(db), cfg.HoldTTL)
	sw := worker.NewSweeper(engine, worker.SweeperConfig{Interval: cfg.SweepInterval}, lg)

	if once {
		n, err := sw.RunOnce(ctx)
		if err != nil {
			lg.Error("sweep failed", zap.Error(err))
			return err
		}
		lg.Info("sweep done", zap.Int64("released", n))
		return nil
	}

	if err := sw.Start(ctx); err != nil {
		lg.Error("sweeper start failed", zap.Error(err))
		return err
	}
	<-ctx.Done()
	sw.Stop()
	st := sw.Stats()
	lg.Info("sweeper stopped", zap.Int64("runs", st.Runs), zap.Int64("total_released", st.TotalReleased))
	return nil
}
