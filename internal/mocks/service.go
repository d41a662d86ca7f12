package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, actor domain.Actor, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) RenewLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, actor, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ReturnLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, actor, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, actor domain.Actor) ([]domain.LoanView, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanView), args.Error(1)
}

func (m *MockLoanService) ListOverdue(ctx context.Context, actor domain.Actor) ([]domain.LoanView, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanView), args.Error(1)
}

func (m *MockLoanService) ListBorrowerLoans(ctx context.Context, actor domain.Actor, borrowerID int64) ([]domain.LoanView, error) {
	args := m.Called(ctx, actor, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanView), args.Error(1)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) CreateReservation(ctx context.Context, actor domain.Actor, request *domain.CreateReservationRequest) (*domain.Reservation, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationService) CancelReservation(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, actor, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationService) ListOpen(ctx context.Context, actor domain.Actor) ([]*domain.Reservation, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}

func (m *MockReservationService) ListBorrowerReservations(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Reservation, error) {
	args := m.Called(ctx, actor, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}

type MockFineService struct {
	mock.Mock
}

func (m *MockFineService) Sweep(ctx context.Context, actor domain.Actor) ([]*domain.Fine, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Fine), args.Error(1)
}

func (m *MockFineService) ListFines(ctx context.Context, actor domain.Actor) ([]*domain.Fine, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Fine), args.Error(1)
}

func (m *MockFineService) ListBorrowerFines(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Fine, error) {
	args := m.Called(ctx, actor, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Fine), args.Error(1)
}

func (m *MockFineService) PendingSummary(ctx context.Context, actor domain.Actor, borrowerID int64) (*domain.PendingFinesResponse, error) {
	args := m.Called(ctx, actor, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingFinesResponse), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, actor domain.Actor, request *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreatePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) Reconcile(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Payment, error) {
	args := m.Called(ctx, actor, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, notification *domain.WebhookNotification) (*domain.Payment, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, actor domain.Actor) ([]*domain.Payment, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) ListBorrowerPayments(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Payment, error) {
	args := m.Called(ctx, actor, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) DeleteBorrower(ctx context.Context, actor domain.Actor, userID int64) error {
	args := m.Called(ctx, actor, userID)
	return args.Error(0)
}
