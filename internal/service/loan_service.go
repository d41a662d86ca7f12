package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/utils"
)

// Promoter hands a freed copy to the next reservation in line.
type Promoter interface {
	PromoteNext(ctx context.Context, itemID int64) (*domain.Reservation, error)
}

type LoanService struct {
	tx           repository.Transactor
	items        repository.ItemRepository
	loans        repository.LoanRepository
	reservations repository.ReservationRepository
	promoter     Promoter
	clock        Clock
	config       *config.Config
	logger       *slog.Logger
}

func NewLoanService(
	tx repository.Transactor,
	items repository.ItemRepository,
	loans repository.LoanRepository,
	reservations repository.ReservationRepository,
	promoter Promoter,
	clock Clock,
	config *config.Config,
	logger *slog.Logger,
) *LoanService {
	return &LoanService{
		tx:           tx,
		items:        items,
		loans:        loans,
		reservations: reservations,
		promoter:     promoter,
		clock:        clock,
		config:       config,
		logger:       logger,
	}
}

// CreateLoan checks out one copy of the item to the actor. The item row stays
// locked from the availability check to the insert.
func (s *LoanService) CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	var loan *domain.Loan

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, request.ItemID)
		if isNotFound(err) {
			return customError.WrapItemNotFound(request.ItemID)
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if !item.Active {
			return customError.WrapItemNotFound(request.ItemID)
		}

		free, held, err := freeCopies(ctx, s.items, s.reservations, item, actor.UserID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if free <= 0 {
			return customError.WrapItemUnavailable(item.ID)
		}

		open, err := s.loans.HasOpenLoan(ctx, actor.UserID, item.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if open {
			return customError.WrapLoanAlreadyOpen(item.ID)
		}

		now := s.clock.Now()
		loan = &domain.Loan{
			ID:         uuid.New(),
			ItemID:     item.ID,
			BorrowerID: actor.UserID,
			StartDate:  now,
			DueDate:    utils.AddDays(now, s.config.Business.LoanPeriodDays),
			Status:     domain.LoanStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.loans.Create(ctx, loan); err != nil {
			if isConflict(err) {
				return customError.WrapLoanAlreadyOpen(item.ID)
			}
			return customError.WrapDatabaseError(err)
		}

		// The borrower picked up the copy held for them.
		if held == nil {
			return nil
		}
		held.Status = domain.ReservationStatusFulfilled
		held.UpdatedAt = now
		if err := s.reservations.Update(ctx, held); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan created", "loan_id", loan.ID, "item_id", loan.ItemID, "borrower_id", loan.BorrowerID, "due_date", loan.DueDate)
	return loan, nil
}

// RenewLoan pushes the due date by one loan period. Only the borrower may renew,
// once, and never after the due date has passed.
func (s *LoanService) RenewLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loans.GetByIDForUpdate(ctx, loanID)
		if isNotFound(err) {
			return customError.WrapLoanNotFound(loanID.String())
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := authorize(actor, domain.CapabilitySelf, loan.BorrowerID, "renew loan"); err != nil {
			return err
		}

		now := s.clock.Now()
		switch {
		case !loan.IsOpen():
			return customError.WrapLoanAlreadyReturned(loanID.String())
		case domain.IsLate(loan, now):
			return customError.WrapLoanOverdue(loanID.String())
		case loan.RenewalCount >= s.config.Business.MaxRenewals:
			return customError.WrapRenewalLimit(loanID.String(), s.config.Business.MaxRenewals)
		}

		loan.DueDate = utils.AddDays(loan.DueDate, s.config.Business.LoanPeriodDays)
		loan.RenewalCount++
		loan.UpdatedAt = now
		if err := s.loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan renewed", "loan_id", loan.ID, "due_date", loan.DueDate)
	return loan, nil
}

// ReturnLoan closes the loan. Returning twice is a no-op. After commit it bumps
// the item's popularity and promotes the next reservation; neither failure undoes
// the return.
func (s *LoanService) ReturnLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	var (
		loan     *domain.Loan
		returned bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loans.GetByIDForUpdate(ctx, loanID)
		if isNotFound(err) {
			return customError.WrapLoanNotFound(loanID.String())
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, loan.BorrowerID, "return loan"); err != nil {
			return err
		}
		if !loan.IsOpen() {
			return nil
		}

		now := s.clock.Now()
		loan.ReturnDate = &now
		loan.Status = domain.LoanStatusReturned
		loan.UpdatedAt = now
		if err := s.loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		returned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !returned {
		return loan, nil
	}

	s.logger.Info("loan returned", "loan_id", loan.ID, "item_id", loan.ItemID)

	if err := s.items.IncrementPopularity(ctx, loan.ItemID); err != nil {
		s.logger.Error("failed to bump popularity", "item_id", loan.ItemID, "error", err)
	}
	if _, err := s.promoter.PromoteNext(ctx, loan.ItemID); err != nil {
		s.logger.Error("failed to promote reservation", "item_id", loan.ItemID, "error", err)
	}

	return loan, nil
}

// ListLoans returns every loan, newest first.
func (s *LoanService) ListLoans(ctx context.Context, actor domain.Actor) ([]domain.LoanView, error) {
	if err := authorize(actor, domain.CapabilityStaff, 0, "list loans"); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.LoanFilter{})
}

// ListOverdue returns open loans due before the start of today.
func (s *LoanService) ListOverdue(ctx context.Context, actor domain.Actor) ([]domain.LoanView, error) {
	if err := authorize(actor, domain.CapabilityStaff, 0, "list overdue loans"); err != nil {
		return nil, err
	}
	today := utils.StartOfDay(s.clock.Now(), s.config.GetLocation())
	return s.list(ctx, repository.LoanFilter{OpenOnly: true, DueBefore: today})
}

func (s *LoanService) ListBorrowerLoans(ctx context.Context, actor domain.Actor, borrowerID int64) ([]domain.LoanView, error) {
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, borrowerID, "list loans"); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.LoanFilter{BorrowerID: borrowerID})
}

func (s *LoanService) list(ctx context.Context, filter repository.LoanFilter) ([]domain.LoanView, error) {
	loans, err := s.loans.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return domain.NewLoanViews(loans, s.clock.Now()), nil
}
