package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"teleshop/api"
	"teleshop/bot"
	"teleshop/config"
	"teleshop/db"
	"teleshop/logger"
	"teleshop/notify"
	"teleshop/services"
	"teleshop/taskpool"
	"teleshop/telegram"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(ctx, cfg, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		return
	}
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("teleshop stopped", zap.Error(err))
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()
	return applyMigrations(ctx, log)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Telegram.Token == "" {
		return errors.New("TOKEN not set")
	}
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := applyMigrations(ctx, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	tg, err := telegram.New(cfg.Telegram, log.Named("telegram"))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pool := taskpool.New(cfg.Notify.Workers, cfg.Notify.QueueSize, log.Named("taskpool"))
	staff := services.NewStaffDirectory(cfg.Notify.StaffCacheTTL)
	formatter := notify.NewFormatter(cfg.Notify.Lang, cfg.Site.Location, cfg.Site.BaseURL, cfg.Site.MediaURL)
	dispatcher := notify.NewDispatcher(tg, staff, formatter, log.Named("notify"),
		notify.WithSubmitter(pool),
		notify.WithMetrics(notify.NewMetrics(reg)),
		notify.WithMaxConcurrency(cfg.Notify.MaxConcurrency),
	)
	trigger := notify.NewTrigger(dispatcher, log.Named("trigger"))

	ctx, cancelBot := context.WithCancel(ctx)
	defer cancelBot()
	b := bot.New(tg.API(), bot.DBStore{}, formatter, log.Named("bot"))
	b.SetOnLinked(func(int64) { staff.Invalidate() })
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		b.Start(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewHandler(api.DBStore{}, trigger, reg, cfg.Site.Location, log.Named("api")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-srvErr:
		log.Error("http server", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancelBot()
	<-botDone
	// in-flight notifications finish before the pool and the database go away
	if err := pool.Close(shutdownCtx); err != nil {
		log.Warn("notification pool did not drain", zap.Error(err))
	}
	return runErr
}
