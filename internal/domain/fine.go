package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FineStatus string

const (
	FineStatusPending FineStatus = "pending"
	FineStatusPaid    FineStatus = "paid"
)

// Fine is the penalty accrued by an overdue loan.
type Fine struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	BorrowerID  int64           `json:"borrower_id" db:"borrower_id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	DaysLate    int             `json:"days_late" db:"days_late"`
	Description string          `json:"description" db:"description"`
	Status      FineStatus      `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PaidAt      *time.Time      `json:"paid_at" db:"paid_at"`
}

type SweepResponse struct {
	Created []*Fine `json:"created"`
}

type FineListResponse struct {
	Items []*Fine `json:"items"`
}

type PendingFinesResponse struct {
	Items        []*Fine         `json:"items"`
	TotalPending decimal.Decimal `json:"total_pending"`
}
