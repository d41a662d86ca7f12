package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/circulation-engine/internal/domain"
)

// SimulatedGateway stands in for the provider when no credentials are configured.
// PIX and BOLETO charges wait and are reported PAID once simulatedSettleAfter has
// passed; card charges are paid at once. Unknown transactions are an error.
type SimulatedGateway struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	charges map[string]simulatedCharge
}

type simulatedCharge struct {
	status    string
	createdAt time.Time
}

const simulatedSettleAfter = 2 * time.Minute

func NewSimulatedGateway(logger *slog.Logger) *SimulatedGateway {
	return &SimulatedGateway{logger: logger, now: time.Now, charges: make(map[string]simulatedCharge)}
}

func (g *SimulatedGateway) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}

	txID := "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	g.logger.Warn("simulated payment gateway in use",
		"method", req.Method,
		"amount", req.Amount.StringFixed(2),
		"reference", req.Reference,
		"transaction_id", txID,
	)

	result := &ChargeResult{TransactionID: txID, MethodData: map[string]any{}}
	switch req.Method {
	case domain.PaymentMethodPix:
		result.Status = domain.GatewayStatusWaiting
		result.MethodData["qr_code"] = fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865405%s5802BR", txID, req.Amount.StringFixed(2))
		result.MethodData["expiration_date"] = g.now().Add(pixExpiration).UTC().Format(time.RFC3339)
	case domain.PaymentMethodBoleto:
		result.Status = domain.GatewayStatusWaiting
		result.MethodData["barcode"] = "34191.09008 01234.567890 12345.678901 2 12345678901234"
	default:
		result.Status = domain.GatewayStatusPaid
		result.MethodData["authorization_code"] = "AUTH_" + txID[4:13]
	}

	result.Raw = simulatedPayload(txID, result.Status)

	g.mu.Lock()
	g.charges[txID] = simulatedCharge{status: result.Status, createdAt: g.now()}
	g.mu.Unlock()
	return result, nil
}

func (g *SimulatedGateway) Status(_ context.Context, transactionID string) (*StatusResult, error) {
	g.mu.Lock()
	charge, ok := g.charges[transactionID]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("simulated gateway: unknown transaction %q", transactionID)
	}

	status := charge.status
	if status == domain.GatewayStatusWaiting && g.now().Sub(charge.createdAt) >= simulatedSettleAfter {
		status = domain.GatewayStatusPaid
	}
	return &StatusResult{
		TransactionID: transactionID,
		Status:        status,
		Raw:           simulatedPayload(transactionID, status),
	}, nil
}

func simulatedPayload(transactionID, status string) domain.RawPayload {
	return domain.NewRawPayload(map[string]any{
		"id":        transactionID,
		"status":    status,
		"simulated": true,
	})
}
