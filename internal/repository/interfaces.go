package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/circulation-engine/internal/domain"
)

// Transactor runs fn inside a single database transaction. Repository calls made
// with the ctx passed to fn join that transaction; nested calls reuse it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ItemRepository is the inventory ledger view of the catalog
type ItemRepository interface {
	// Get retrieves an item by id
	Get(ctx context.Context, id int64) (*domain.Item, error)

	// GetForUpdate retrieves an item and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*domain.Item, error)

	// CountCheckedOut counts open loans for the item
	CountCheckedOut(ctx context.Context, id int64) (int, error)

	// IncrementPopularity bumps the item's popularity counter by one
	IncrementPopularity(ctx context.Context, id int64) error
}

// LoanFilter narrows loan listings. Zero values mean "no restriction".
type LoanFilter struct {
	BorrowerID int64
	OpenOnly   bool
	DueBefore  time.Time
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks its row
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Update persists status, dates, renewal count and notified flag
	Update(ctx context.Context, loan *domain.Loan) error

	// HasOpenLoan reports whether the borrower holds an unreturned copy of the item
	HasOpenLoan(ctx context.Context, borrowerID, itemID int64) (bool, error)

	// CountOpenByBorrower counts the borrower's unreturned loans
	CountOpenByBorrower(ctx context.Context, borrowerID int64) (int, error)

	// List returns loans matching filter, newest first
	List(ctx context.Context, filter LoanFilter) ([]*domain.Loan, error)

	// ListUnfinedOverdue returns open loans due before cutoff with no pending fine
	ListUnfinedOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error)

	// ListDueBetween returns open, not-notified loans due in [from, to]
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.LoanNotice, error)

	// ListOverdueNotices returns open, not-notified loans due before cutoff
	// with the borrower's pending fine total for the loan
	ListOverdueNotices(ctx context.Context, cutoff time.Time) ([]*domain.LoanNotice, error)

	// MarkNotified sets the notified flag
	MarkNotified(ctx context.Context, id uuid.UUID) error
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	BorrowerID int64
	OpenOnly   bool
}

// ReservationRepository defines the interface for reservation queue operations
type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)

	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)

	// Update persists status, notified_at and expires_at
	Update(ctx context.Context, reservation *domain.Reservation) error

	// HasActive reports whether the borrower already queues for the item
	HasActive(ctx context.Context, borrowerID, itemID int64) (bool, error)

	// Head locks and returns the oldest active reservation for the item.
	// Rows locked by another transaction are skipped. ErrNotFound when the queue is empty.
	Head(ctx context.Context, itemID int64) (*domain.Reservation, error)

	// FindAwaitingPickup returns the borrower's awaiting-pickup reservation for the item
	FindAwaitingPickup(ctx context.Context, borrowerID, itemID int64) (*domain.Reservation, error)

	// CountAwaitingPickup counts copies of the item currently held for a borrower
	CountAwaitingPickup(ctx context.Context, itemID int64) (int, error)

	// ListExpired returns awaiting-pickup reservations whose hold ended before now
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Reservation, error)

	// List returns reservations matching filter in queue order
	List(ctx context.Context, filter ReservationFilter) ([]*domain.Reservation, error)
}

// FineFilter narrows fine listings.
type FineFilter struct {
	BorrowerID int64
	Status     domain.FineStatus
}

// FineRepository defines the interface for fine data operations
type FineRepository interface {
	// Create inserts a fine. ErrConflict when the loan already has a pending fine.
	Create(ctx context.Context, fine *domain.Fine) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Fine, error)

	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Fine, error)

	// MarkPaid moves a pending fine to paid
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error

	List(ctx context.Context, filter FineFilter) ([]*domain.Fine, error)

	// SumPending totals the borrower's pending fines
	SumPending(ctx context.Context, borrowerID int64) (decimal.Decimal, error)
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	BorrowerID int64
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)

	// GetByTransactionIDForUpdate locks the payment row
	GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*domain.Payment, error)

	// HasPending reports whether the fine has a payment still awaiting the gateway
	HasPending(ctx context.Context, fineID uuid.UUID) (bool, error)

	// Update persists status, gateway status and raw payload
	Update(ctx context.Context, payment *domain.Payment) error

	List(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error)
}

// UserRepository is the read side of borrowers plus the admin cascade
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Borrower, error)

	// DeleteCascade removes the user's payments, fines, reservations, loans and the user.
	// Call inside WithinTx for all-or-nothing semantics.
	DeleteCascade(ctx context.Context, id int64) error
}
