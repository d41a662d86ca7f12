package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodBoleto     PaymentMethod = "BOLETO"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBoleto:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal is true once the gateway has settled the payment one way or the other.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusRejected || s == PaymentStatusCancelled
}

// Statuses reported by the payment gateway.
const (
	GatewayStatusPaid       = "PAID"
	GatewayStatusAuthorized = "AUTHORIZED"
	GatewayStatusDeclined   = "DECLINED"
	GatewayStatusCanceled   = "CANCELED"
	GatewayStatusInAnalysis = "IN_ANALYSIS"
	GatewayStatusWaiting    = "WAITING"
)

var gatewayStatusMap = map[string]PaymentStatus{
	GatewayStatusPaid:       PaymentStatusApproved,
	GatewayStatusAuthorized: PaymentStatusApproved,
	GatewayStatusDeclined:   PaymentStatusRejected,
	GatewayStatusCanceled:   PaymentStatusCancelled,
	GatewayStatusInAnalysis: PaymentStatusPending,
	GatewayStatusWaiting:    PaymentStatusPending,
}

// MapGatewayStatus translates a gateway status into the internal payment status.
// Unknown statuses are treated as pending.
func MapGatewayStatus(gatewayStatus string) PaymentStatus {
	if status, ok := gatewayStatusMap[gatewayStatus]; ok {
		return status
	}
	return PaymentStatusPending
}

// Payment is one attempt to settle a fine through the gateway.
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	FineID        uuid.UUID       `json:"fine_id" db:"fine_id"`
	BorrowerID    int64           `json:"borrower_id" db:"borrower_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Method        PaymentMethod   `json:"method" db:"method"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Status        PaymentStatus   `json:"status" db:"status"`
	GatewayStatus string          `json:"gateway_status" db:"gateway_status"`
	RawPayload    RawPayload      `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// RawPayload keeps the gateway response verbatim in a jsonb column.
type RawPayload []byte

// NewRawPayload encodes v, dropping it when it cannot be represented as JSON.
func NewRawPayload(v any) RawPayload {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func (p RawPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	// lib/pq sends []byte as bytea, which jsonb rejects
	return string(p), nil
}

func (p *RawPayload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append(RawPayload(nil), v...)
	case string:
		*p = RawPayload(v)
	default:
		return fmt.Errorf("raw payload: unsupported type %T", src)
	}
	return nil
}

func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *RawPayload) UnmarshalJSON(b []byte) error {
	*p = append(RawPayload(nil), b...)
	return nil
}

// DTOs for requests and responses

type CreatePaymentRequest struct {
	FineID     uuid.UUID      `json:"fine_id" validate:"required"`
	Method     PaymentMethod  `json:"method" validate:"required,oneof=PIX CREDIT_CARD BOLETO"`
	MethodData map[string]any `json:"method_data"`
}

type CreatePaymentResponse struct {
	Payment    *Payment       `json:"payment"`
	MethodData map[string]any `json:"method_data,omitempty"`
}

// WebhookNotification is the body the gateway posts when a charge changes status.
type WebhookNotification struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type PaymentListResponse struct {
	Items []*Payment `json:"items"`
}
