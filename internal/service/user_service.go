package service

import (
	"context"
	"log/slog"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
)

type UserService struct {
	tx     repository.Transactor
	users  repository.UserRepository
	loans  repository.LoanRepository
	logger *slog.Logger
}

func NewUserService(tx repository.Transactor, users repository.UserRepository, loans repository.LoanRepository, logger *slog.Logger) *UserService {
	return &UserService{tx: tx, users: users, loans: loans, logger: logger}
}

// DeleteBorrower removes a borrower with their payments, fines, reservations
// and loans. Everything goes or nothing does.
func (s *UserService) DeleteBorrower(ctx context.Context, actor domain.Actor, userID int64) error {
	if err := authorize(actor, domain.CapabilityAdmin, 0, "delete user"); err != nil {
		return err
	}
	if actor.UserID == userID {
		return customError.WrapSelfDelete()
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			if isNotFound(err) {
				return customError.WrapUserNotFound(userID)
			}
			return customError.WrapDatabaseError(err)
		}

		open, err := s.loans.CountOpenByBorrower(ctx, userID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if open > 0 {
			return customError.WrapUserHasOpenLoans(userID)
		}

		if err := s.users.DeleteCascade(ctx, userID); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", userID, "deleted_by", actor.UserID)
	return nil
}
