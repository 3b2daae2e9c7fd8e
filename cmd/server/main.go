package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"garage-backend/internal/cache"
	"garage-backend/internal/clock"
	"garage-backend/internal/config"
	"garage-backend/internal/database"
	"garage-backend/internal/db"
	"garage-backend/internal/handlers"
	h "garage-backend/internal/http"
	"garage-backend/internal/middleware"
	"garage-backend/internal/notify"
	"garage-backend/internal/repositories"
	"garage-backend/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.SetupLogger(cfg)
	log := logrus.StandardLogger()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := migrator.RunMigrations(ctx); err != nil {
		cancel()
		log.WithError(err).Fatal("migrations failed")
	}
	cancel()

	if err := cache.Init(); err != nil {
		log.WithError(err).Warn("redis unavailable, running without cache")
	}

	// Repositories
	seqRepo := repositories.NewSequenceRepository(pool)
	sessionRepo := repositories.NewSessionRepository(pool, seqRepo)
	intakeRepo := repositories.NewIntakeRepository(pool)
	jobCardRepo := repositories.NewJobCardRepository(pool, seqRepo)
	itemRepo := repositories.NewJobCardItemRepository(pool)
	partRepo := repositories.NewPartRepository(pool)
	timeRepo := repositories.NewTimeEntryRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool, seqRepo)

	// Services
	clk := clock.System{}
	notifier := notify.NewLogNotifier(log)
	sessionService := services.NewSessionService(sessionRepo, intakeRepo, clk, notifier, log)
	jobCardService := services.NewJobCardService(jobCardRepo, itemRepo, partRepo, sessionRepo, intakeRepo, clk, log)
	timeService := services.NewTimeTrackingService(timeRepo, itemRepo, clk, log)
	billingService := services.NewBillingService(invoiceRepo, jobCardRepo, itemRepo, partRepo, sessionRepo, clk, notifier, log)
	onlineService := services.NewOnlinePaymentService(billingService,
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, log)

	// Handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	jobCardHandler := handlers.NewJobCardHandler(jobCardService, timeService)
	invoiceHandler := handlers.NewInvoiceHandler(billingService, onlineService)
	healthHandler := handlers.NewHealthHandler(pool)

	// Nightly overdue sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Billing.OverdueSweepSchedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer sweepCancel()
		if err := billingService.SweepOverdue(sweepCtx); err != nil {
			log.WithError(err).Error("overdue sweep failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("invalid overdue sweep schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := h.NewRouter(sessionHandler, jobCardHandler, invoiceHandler, healthHandler)

	handler := middleware.PanicRecovery(log)(
		middleware.RequestLogging(log)(
			middleware.MetricsMiddleware(
				middleware.NewCORS(cfg)(router))))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
