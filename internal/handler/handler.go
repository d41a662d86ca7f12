package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/middleware"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/response"
)

var errNoActor = errors.New("no authenticated actor")

type LoanService interface {
	CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.Loan, error)
	RenewLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error)
	ListLoans(ctx context.Context, actor domain.Actor) ([]domain.LoanView, error)
	ListOverdue(ctx context.Context, actor domain.Actor) ([]domain.LoanView, error)
	ListBorrowerLoans(ctx context.Context, actor domain.Actor, borrowerID int64) ([]domain.LoanView, error)
}

type ReservationService interface {
	CreateReservation(ctx context.Context, actor domain.Actor, request *domain.CreateReservationRequest) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.Reservation, error)
	ListOpen(ctx context.Context, actor domain.Actor) ([]*domain.Reservation, error)
	ListBorrowerReservations(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Reservation, error)
}

type FineService interface {
	Sweep(ctx context.Context, actor domain.Actor) ([]*domain.Fine, error)
	ListFines(ctx context.Context, actor domain.Actor) ([]*domain.Fine, error)
	ListBorrowerFines(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Fine, error)
	PendingSummary(ctx context.Context, actor domain.Actor, borrowerID int64) (*domain.PendingFinesResponse, error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, actor domain.Actor, request *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error)
	Reconcile(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Payment, error)
	HandleWebhook(ctx context.Context, notification *domain.WebhookNotification) (*domain.Payment, error)
	ListPayments(ctx context.Context, actor domain.Actor) ([]*domain.Payment, error)
	ListBorrowerPayments(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Payment, error)
}

type UserService interface {
	DeleteBorrower(ctx context.Context, actor domain.Actor, userID int64) error
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, v *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return customError.WrapValidation(fmt.Errorf("invalid request body: %w", err))
	}
	if err := v.Struct(dst); err != nil {
		return customError.WrapValidation(err)
	}
	return nil
}

// currentActor returns the caller resolved by the auth middleware, writing 401 when absent.
func currentActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		response.FromError(w, customError.WrapUnauthorized(errNoActor))
	}
	return a, ok
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, customError.WrapValidation(fmt.Errorf("invalid %s: %w", name, err))
	}
	return id, nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, customError.WrapValidation(fmt.Errorf("invalid %s %q", name, mux.Vars(r)[name]))
	}
	return id, nil
}
