package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/mailer"
	"github.com/segyhp/circulation-engine/internal/repository"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	"github.com/segyhp/circulation-engine/internal/service"
	apperrors "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	log.Info("starting circulation scheduler", "timezone", cfg.Scheduler.Timezone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.Open(ctx, repository.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	cancel()
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	guard := scheduler.NewGuard(scheduler.NewRedisLocker(redisClient), cfg.Scheduler.LockTTL, log)
	clock := service.SystemClock{}

	tx := repository.NewTransactor(db)
	items := repository.NewItemRepository(db)
	loans := repository.NewLoanRepository(db)
	reservations := repository.NewReservationRepository(db)
	fines := repository.NewFineRepository(db)
	users := repository.NewUserRepository(db)

	var mail mailer.Mailer = mailer.NewLogMailer(log)
	if cfg.Mail.Host != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			Timeout:  cfg.Mail.Timeout,
		})
	}

	notificationService := service.NewNotificationService(loans, items, users, mail, guard, clock, cfg, log)
	reservationService := service.NewReservationService(tx, items, reservations, notificationService, guard, clock, cfg, log)
	fineService := service.NewFineService(tx, loans, fines, guard, clock, cfg, log)

	s := scheduler.New(cfg.GetLocation(), clock, cfg.Scheduler.JobTimeout, log)
	if err := setupJobs(s, cfg, fineService, notificationService, reservationService, log); err != nil {
		log.Error("failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	s.Start()
	log.Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	<-s.Stop().Done()
	log.Info("scheduler stopped")
}

func setupJobs(
	s *scheduler.Scheduler,
	cfg *config.Config,
	fines *service.FineService,
	notifications *service.NotificationService,
	reservations *service.ReservationService,
	log *slog.Logger,
) error {
	jobs := []struct {
		kind scheduler.TaskKind
		spec string
		job  scheduler.Job
	}{
		{scheduler.TaskFineSweep, cfg.Scheduler.FineSweepSpec, func(ctx context.Context) error {
			created, err := fines.RunSweep(ctx)
			if err != nil {
				return err
			}
			log.Info("fine sweep finished", "created", len(created))
			return nil
		}},
		{scheduler.TaskDueSoonReminders, cfg.Scheduler.DueSoonSpec, func(ctx context.Context) error {
			result, err := notifications.SendDueSoonReminders(ctx)
			if err != nil {
				return err
			}
			log.Info("due-soon reminders finished", "sent", result.Sent, "failed", result.Failed)
			return nil
		}},
		{scheduler.TaskOverdueEscalations, cfg.Scheduler.OverdueSpec, func(ctx context.Context) error {
			result, err := notifications.SendOverdueEscalations(ctx)
			if err != nil {
				return err
			}
			log.Info("overdue escalations finished", "sent", result.Sent, "failed", result.Failed)
			return nil
		}},
		{scheduler.TaskReservationExpiry, cfg.Scheduler.ReservationSpec, func(ctx context.Context) error {
			result, err := reservations.ExpireStale(ctx)
			if err != nil {
				return err
			}
			log.Info("reservation expiry finished", "expired", result.Expired, "promoted", result.Promoted, "failed", result.Failed)
			return nil
		}},
	}

	for _, j := range jobs {
		if err := s.Register(j.kind, j.spec, skipWhenLocked(j.kind, j.job, log)); err != nil {
			return fmt.Errorf("register %s: %w", j.kind, err)
		}
	}
	return nil
}

// skipWhenLocked treats a run held by another scheduler instance as success.
func skipWhenLocked(kind scheduler.TaskKind, job scheduler.Job, log *slog.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		err := job(ctx)
		if errors.Is(err, apperrors.ErrSweepAlreadyRunning) {
			log.Info("task already running elsewhere, skipped", "kind", kind)
			return nil
		}
		return err
	}
}
