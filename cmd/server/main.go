package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/gateway"
	"github.com/segyhp/circulation-engine/internal/handler"
	"github.com/segyhp/circulation-engine/internal/mailer"
	"github.com/segyhp/circulation-engine/internal/middleware"
	"github.com/segyhp/circulation-engine/internal/repository"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	"github.com/segyhp/circulation-engine/internal/service"
	"github.com/segyhp/circulation-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	guard := scheduler.NewGuard(scheduler.NewRedisLocker(redisClient), cfg.Scheduler.LockTTL, log)
	clock := service.SystemClock{}

	// Initialize repositories
	tx := repository.NewTransactor(db)
	items := repository.NewItemRepository(db)
	loans := repository.NewLoanRepository(db)
	reservations := repository.NewReservationRepository(db)
	fines := repository.NewFineRepository(db)
	payments := repository.NewPaymentRepository(db)
	users := repository.NewUserRepository(db)

	// Initialize services
	notificationService := service.NewNotificationService(loans, items, users, newMailer(cfg, log), guard, clock, cfg, log)
	reservationService := service.NewReservationService(tx, items, reservations, notificationService, guard, clock, cfg, log)
	loanService := service.NewLoanService(tx, items, loans, reservations, reservationService, clock, cfg, log)
	fineService := service.NewFineService(tx, loans, fines, guard, clock, cfg, log)
	paymentService := service.NewPaymentService(tx, fines, payments, users, newGateway(cfg, log), clock, cfg, log)
	userService := service.NewUserService(tx, users, loans, log)

	auth := middleware.NewAuth(cfg.Auth.JWTSecret)
	router := handler.NewRouter(handler.Handlers{
		Health:       handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout),
		Loans:        handler.NewLoanHandler(loanService),
		Reservations: handler.NewReservationHandler(reservationService),
		Fines:        handler.NewFineHandler(fineService),
		Payments:     handler.NewPaymentHandler(paymentService, cfg.Auth.WebhookToken),
		Users:        handler.NewUserHandler(userService),
	}, auth.Middleware, log)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.Open(ctx, repository.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newGateway(cfg *config.Config, log *slog.Logger) gateway.Gateway {
	if !cfg.GatewayConfigured() {
		log.Warn("PAGSEGURO_TOKEN not set, using simulated payment gateway")
		return gateway.NewSimulatedGateway(log)
	}
	return gateway.NewPagSeguroGateway(gateway.PagSeguroConfig{
		BaseURL: gateway.BaseURLFor(cfg.Gateway.Env),
		Token:   cfg.Gateway.Token,
		Timeout: cfg.Gateway.Timeout,
	})
}

func newMailer(cfg *config.Config, log *slog.Logger) mailer.Mailer {
	if cfg.Mail.Host == "" {
		log.Warn("SMTP_HOST not set, notifications are only logged")
		return mailer.NewLogMailer(log)
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		User:     cfg.Mail.User,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Timeout:  cfg.Mail.Timeout,
	})
}
