package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/utils"
)

type FineService struct {
	tx     repository.Transactor
	loans  repository.LoanRepository
	fines  repository.FineRepository
	guard  *scheduler.Guard
	clock  Clock
	config *config.Config
	logger *slog.Logger
}

func NewFineService(
	tx repository.Transactor,
	loans repository.LoanRepository,
	fines repository.FineRepository,
	guard *scheduler.Guard,
	clock Clock,
	config *config.Config,
	logger *slog.Logger,
) *FineService {
	return &FineService{
		tx:     tx,
		loans:  loans,
		fines:  fines,
		guard:  guard,
		clock:  clock,
		config: config,
		logger: logger,
	}
}

// Sweep is the staff-triggered fine sweep.
func (s *FineService) Sweep(ctx context.Context, actor domain.Actor) ([]*domain.Fine, error) {
	if err := authorize(actor, domain.CapabilityStaff, 0, "run fine sweep"); err != nil {
		return nil, err
	}
	return s.RunSweep(ctx)
}

// RunSweep fines every open loan due before today that has no pending fine yet,
// and marks those loans overdue. Re-running it creates nothing new.
func (s *FineService) RunSweep(ctx context.Context) ([]*domain.Fine, error) {
	return scheduler.Run(ctx, s.guard, scheduler.TaskFineSweep, s.sweep)
}

func (s *FineService) sweep(ctx context.Context) ([]*domain.Fine, error) {
	now := s.clock.Now()
	loans, err := s.loans.ListUnfinedOverdue(ctx, utils.StartOfDay(now, s.config.GetLocation()))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	rate := s.config.GetFinePerDay()
	created := make([]*domain.Fine, 0, len(loans))
	for _, loan := range loans {
		days := utils.DaysLate(loan.DueDate, now)
		if days <= 0 {
			continue
		}

		fine, err := s.fineLoan(ctx, loan.ID, days, utils.FineAmount(days, rate), now)
		if err != nil {
			s.logger.Error("failed to fine loan", "loan_id", loan.ID, "error", err)
			continue
		}
		if fine != nil {
			created = append(created, fine)
		}
	}

	s.logger.Info("fine sweep finished", "candidates", len(loans), "created", len(created))
	return created, nil
}

// fineLoan inserts the fine and flips the loan to overdue in one transaction.
// It returns nil when the loan was returned or fined in the meantime.
func (s *FineService) fineLoan(ctx context.Context, loanID uuid.UUID, days int, amount decimal.Decimal, now time.Time) (*domain.Fine, error) {
	var fine *domain.Fine

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := s.loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.IsOpen() {
			return nil
		}

		f := &domain.Fine{
			ID:          uuid.New(),
			BorrowerID:  loan.BorrowerID,
			LoanID:      loan.ID,
			Amount:      amount,
			DaysLate:    days,
			Description: fmt.Sprintf("%d day(s) late on loan %s", days, loan.ID),
			Status:      domain.FineStatusPending,
			CreatedAt:   now,
		}
		if err := s.fines.Create(ctx, f); err != nil {
			return err
		}

		loan.Status = domain.LoanStatusOverdue
		loan.UpdatedAt = now
		if err := s.loans.Update(ctx, loan); err != nil {
			return err
		}
		fine = f
		return nil
	})
	if isConflict(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fine, nil
}

func (s *FineService) ListFines(ctx context.Context, actor domain.Actor) ([]*domain.Fine, error) {
	if err := authorize(actor, domain.CapabilityStaff, 0, "list fines"); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.FineFilter{})
}

func (s *FineService) ListBorrowerFines(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Fine, error) {
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, borrowerID, "list fines"); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.FineFilter{BorrowerID: borrowerID})
}

// PendingSummary returns the borrower's unpaid fines and their total.
func (s *FineService) PendingSummary(ctx context.Context, actor domain.Actor, borrowerID int64) (*domain.PendingFinesResponse, error) {
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, borrowerID, "list fines"); err != nil {
		return nil, err
	}

	fines, err := s.list(ctx, repository.FineFilter{BorrowerID: borrowerID, Status: domain.FineStatusPending})
	if err != nil {
		return nil, err
	}
	total, err := s.fines.SumPending(ctx, borrowerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return &domain.PendingFinesResponse{Items: fines, TotalPending: total}, nil
}

func (s *FineService) list(ctx context.Context, filter repository.FineFilter) ([]*domain.Fine, error) {
	fines, err := s.fines.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return fines, nil
}
