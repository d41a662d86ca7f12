package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusOverdue  LoanStatus = "overdue"
)

// Loan represents a checked-out copy of an item
type Loan struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	ItemID       int64      `json:"item_id" db:"item_id"`
	BorrowerID   int64      `json:"borrower_id" db:"borrower_id"`
	StartDate    time.Time  `json:"start_date" db:"start_date"`
	DueDate      time.Time  `json:"due_date" db:"due_date"`
	ReturnDate   *time.Time `json:"return_date" db:"return_date"`
	RenewalCount int        `json:"renewal_count" db:"renewal_count"`
	Status       LoanStatus `json:"status" db:"status"` // active, returned, overdue
	Notified     bool       `json:"notified" db:"notified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the copy has not been returned yet.
func (l *Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// IsLate is the borrower-facing overdue check. It is computed from dates only;
// the stored Status lags behind it until the fine sweep marks the loan overdue.
func IsLate(l *Loan, now time.Time) bool {
	return l.ReturnDate == nil && l.DueDate.Before(now)
}

// LoanView is a loan as shown to clients, with the derived late flag.
type LoanView struct {
	*Loan
	Late bool `json:"late"`
}

func NewLoanView(l *Loan, now time.Time) LoanView {
	return LoanView{Loan: l, Late: IsLate(l, now)}
}

func NewLoanViews(loans []*Loan, now time.Time) []LoanView {
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, NewLoanView(l, now))
	}
	return views
}

// LoanNotice is an open loan joined with what the mailer needs to address the borrower.
type LoanNotice struct {
	Loan
	BorrowerName  string          `db:"borrower_name"`
	BorrowerEmail string          `db:"borrower_email"`
	ItemTitle     string          `db:"item_title"`
	PendingFines  decimal.Decimal `db:"pending_fines"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
}

type LoanListResponse struct {
	Items []LoanView `json:"items"`
}
