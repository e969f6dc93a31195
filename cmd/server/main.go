package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/config"
	"github.com/paddocklabs/studbook/internal/repository/mongodb"
	"github.com/paddocklabs/studbook/internal/repository/sheets"
	"github.com/paddocklabs/studbook/internal/scheduler"
	"github.com/paddocklabs/studbook/internal/server/handlers"
	"github.com/paddocklabs/studbook/internal/server/router"
	bookingsvc "github.com/paddocklabs/studbook/internal/service/booking"
	"github.com/paddocklabs/studbook/internal/service/effects"
	semensvc "github.com/paddocklabs/studbook/internal/service/semen"
	"github.com/paddocklabs/studbook/pkg/clients/notify"
	"github.com/paddocklabs/studbook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.New(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var notifier notify.Client
	if cfg.Notify.Enabled() {
		notifier = notify.NewClient(cfg.Notify)
		baseLogger.Info("notification dispatcher enabled")
	} else {
		baseLogger.Warn("notification dispatcher not configured, notification effects will be dropped")
	}

	var auditSink sheets.AuditSink
	if cfg.Audit.Enabled() {
		auditSink, err = sheets.NewAuditSheetRepository(context.Background(), cfg.Audit, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init audit sheet repository", zap.Error(err))
		}
		baseLogger.Info("spreadsheet audit sink enabled")
	}

	dispatcher := effects.NewDispatcher(notifier, auditSink, baseLogger.Named("svc.effects"))
	defer dispatcher.Wait()

	semenSvc := semensvc.NewService(mongoRepo, baseLogger.Named("svc.semen"))
	bookingSvc := bookingsvc.NewService(mongoRepo, semenSvc, baseLogger.Named("svc.booking"))

	bookingHandler := handlers.NewBookingHandler(bookingSvc, dispatcher, baseLogger.Named("handlers.booking"))
	semenHandler := handlers.NewSemenHandler(semenSvc, dispatcher, baseLogger.Named("handlers.semen"))
	engine := router.New(bookingHandler, semenHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Sweeper, semenSvc, dispatcher, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
