package service

import (
	"context"
	"log/slog"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/mailer"
	"github.com/segyhp/circulation-engine/internal/repository"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/utils"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

type NotificationService struct {
	loans  repository.LoanRepository
	items  repository.ItemRepository
	users  repository.UserRepository
	mailer mailer.Mailer
	guard  *scheduler.Guard
	clock  Clock
	config *config.Config
	logger *slog.Logger
}

func NewNotificationService(
	loans repository.LoanRepository,
	items repository.ItemRepository,
	users repository.UserRepository,
	mailer mailer.Mailer,
	guard *scheduler.Guard,
	clock Clock,
	config *config.Config,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		loans:  loans,
		items:  items,
		users:  users,
		mailer: mailer,
		guard:  guard,
		clock:  clock,
		config: config,
		logger: logger,
	}
}

// SendDueSoonReminders mails borrowers whose loans fall due within the reminder
// window. Loans are not marked notified, so a reminder repeats on every run until
// the loan is returned or becomes overdue.
func (s *NotificationService) SendDueSoonReminders(ctx context.Context) (*domain.NotificationResult, error) {
	return scheduler.Run(ctx, s.guard, scheduler.TaskDueSoonReminders, s.sendDueSoon)
}

func (s *NotificationService) sendDueSoon(ctx context.Context) (*domain.NotificationResult, error) {
	loc := s.config.GetLocation()
	now := s.clock.Now()
	window := s.config.Business.DueSoonWindowDays

	notices, err := s.loans.ListDueBetween(ctx, utils.StartOfDay(now, loc), utils.AddDays(now, window))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := &domain.NotificationResult{}
	for _, n := range notices {
		daysLeft := utils.DaysUntil(n.DueDate, now)
		if daysLeft < 0 || daysLeft > window {
			continue
		}

		err := s.mailer.Send(ctx, mailer.KindDueSoon, recipientOf(n), map[string]any{
			"Title":    n.ItemTitle,
			"DueDate":  n.DueDate.In(loc).Format(dateLayout),
			"DaysLeft": daysLeft,
		})
		if err != nil {
			result.Failed++
			s.logger.Error("failed to send due soon reminder", "loan_id", n.ID, "error", err)
			continue
		}
		result.Sent++
	}

	s.logger.Info("due soon reminders finished", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

// SendOverdueEscalations mails each overdue borrower once. A loan is marked
// notified only after its mail went out; failures are retried on the next run.
func (s *NotificationService) SendOverdueEscalations(ctx context.Context) (*domain.NotificationResult, error) {
	return scheduler.Run(ctx, s.guard, scheduler.TaskOverdueEscalations, s.sendOverdue)
}

func (s *NotificationService) sendOverdue(ctx context.Context) (*domain.NotificationResult, error) {
	loc := s.config.GetLocation()
	now := s.clock.Now()
	rate := s.config.GetFinePerDay()

	notices, err := s.loans.ListOverdueNotices(ctx, utils.StartOfDay(now, loc))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := &domain.NotificationResult{}
	for _, n := range notices {
		daysLate := utils.DaysLate(n.DueDate, now)
		fine := n.PendingFines
		if !fine.IsPositive() {
			fine = utils.FineAmount(daysLate, rate)
		}

		err := s.mailer.Send(ctx, mailer.KindOverdue, recipientOf(n), map[string]any{
			"Title":    n.ItemTitle,
			"DaysLate": daysLate,
			"DueDate":  n.DueDate.In(loc).Format(dateLayout),
			"Fine":     fine.StringFixed(2),
		})
		if err != nil {
			result.Failed++
			s.logger.Error("failed to send overdue notice", "loan_id", n.ID, "error", err)
			continue
		}

		if err := s.loans.MarkNotified(ctx, n.ID); err != nil {
			// mail already sent; the next run may repeat it
			s.logger.Error("failed to mark loan notified", "loan_id", n.ID, "error", err)
		}
		result.Sent++
	}

	s.logger.Info("overdue escalations finished", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

// NotifyReservationAvailable tells the holder their copy waits until the hold expires.
func (s *NotificationService) NotifyReservationAvailable(ctx context.Context, reservation *domain.Reservation) error {
	user, err := s.users.GetByID(ctx, reservation.BorrowerID)
	if isNotFound(err) {
		return customError.WrapUserNotFound(reservation.BorrowerID)
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	item, err := s.items.Get(ctx, reservation.ItemID)
	if isNotFound(err) {
		return customError.WrapItemNotFound(reservation.ItemID)
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	data := map[string]any{"Title": item.Title}
	if reservation.ExpiresAt != nil {
		data["ExpiresAt"] = reservation.ExpiresAt.In(s.config.GetLocation()).Format(dateTimeLayout)
	}
	return s.mailer.Send(ctx, mailer.KindReservationAvailable, mailer.Recipient{Name: user.Name, Email: user.Email}, data)
}

func recipientOf(n *domain.LoanNotice) mailer.Recipient {
	return mailer.Recipient{Name: n.BorrowerName, Email: n.BorrowerEmail}
}
