// Package gateway charges fines through an external payment provider.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/segyhp/circulation-engine/internal/domain"
)

// Customer identifies the payer to the provider.
type Customer struct {
	Name  string
	Email string
	TaxID string
}

type ChargeRequest struct {
	Reference  string
	Amount     decimal.Decimal
	Method     domain.PaymentMethod
	Customer   Customer
	MethodData map[string]any
}

// ChargeResult carries the provider's view of a new charge. Status is the raw
// provider status, see domain.MapGatewayStatus.
type ChargeResult struct {
	TransactionID string
	Status        string
	MethodData    map[string]any
	Raw           domain.RawPayload
}

type StatusResult struct {
	TransactionID string
	Status        string
	Raw           domain.RawPayload
}

// Gateway is the payment capability consumed by the payment service.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Status(ctx context.Context, transactionID string) (*StatusResult, error)
}
