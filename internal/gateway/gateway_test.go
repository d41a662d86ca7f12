package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/pkg/logger"
)

func TestPagSeguroGateway_ChargePix(t *testing.T) {
	var got chargePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "4.0", r.Header.Get("x-api-version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"CHAR_1","status":"WAITING","payment_method":{"pix":{"qr_code":"000201"}}}`))
	}))
	defer srv.Close()

	g := NewPagSeguroGateway(PagSeguroConfig{BaseURL: srv.URL, Token: "secret", Timeout: time.Second})
	res, err := g.Charge(context.Background(), ChargeRequest{
		Reference: "f-1",
		Amount:    decimal.RequireFromString("20.00"),
		Method:    domain.PaymentMethodPix,
		Customer:  Customer{Name: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "CHAR_1", res.TransactionID)
	assert.Equal(t, domain.GatewayStatusWaiting, res.Status)
	assert.Equal(t, "000201", res.MethodData["qr_code"])
	assert.NotEmpty(t, res.Raw)

	assert.Equal(t, int64(2000), got.Amount.Value)
	assert.Equal(t, "BRL", got.Amount.Currency)
	assert.Equal(t, "PIX", got.PaymentMethod.Type)
	assert.Equal(t, defaultTaxID, got.Customer.TaxID)
	assert.Equal(t, "fine_f-1", got.ReferenceID)
}

func TestPagSeguroGateway_ChargeCard(t *testing.T) {
	var got chargePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"CHAR_2","status":"PAID","payment_response":{"code":"20000"}}`))
	}))
	defer srv.Close()

	g := NewPagSeguroGateway(PagSeguroConfig{BaseURL: srv.URL, Token: "secret"})
	res, err := g.Charge(context.Background(), ChargeRequest{
		Reference: "f-2",
		Amount:    decimal.RequireFromString("4.00"),
		Method:    domain.PaymentMethodCreditCard,
		MethodData: map[string]any{
			"number":        "4111 1111 1111 1111",
			"exp_month":     "12",
			"exp_year":      "2030",
			"security_code": "123",
			"holder_name":   "ANA",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.GatewayStatusPaid, res.Status)
	assert.Equal(t, "20000", res.MethodData["authorization_code"])
	require.NotNil(t, got.PaymentMethod.Card)
	assert.Equal(t, "4111111111111111", got.PaymentMethod.Card.Number)
	assert.Equal(t, 1, got.PaymentMethod.Installments)
	assert.True(t, got.PaymentMethod.Capture)
}

func TestPagSeguroGateway_CardRequiresNumber(t *testing.T) {
	g := NewPagSeguroGateway(PagSeguroConfig{BaseURL: "http://unused", Token: "secret"})

	_, err := g.Charge(context.Background(), ChargeRequest{
		Reference: "f-3",
		Amount:    decimal.RequireFromString("4.00"),
		Method:    domain.PaymentMethodCreditCard,
	})
	assert.Error(t, err)
}

func TestPagSeguroGateway_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_messages":[{"description":"invalid tax_id"}]}`))
	}))
	defer srv.Close()

	g := NewPagSeguroGateway(PagSeguroConfig{BaseURL: srv.URL, Token: "secret"})
	_, err := g.Charge(context.Background(), ChargeRequest{
		Reference: "f-4",
		Amount:    decimal.RequireFromString("2.00"),
		Method:    domain.PaymentMethodBoleto,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tax_id")
}

func TestPagSeguroGateway_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	g := NewPagSeguroGateway(PagSeguroConfig{BaseURL: srv.URL, Token: "secret", Timeout: 20 * time.Millisecond})
	_, err := g.Status(context.Background(), "CHAR_1")
	assert.Error(t, err)
}

func TestPagSeguroGateway_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges/CHAR_9", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"CHAR_9","status":"DECLINED"}`))
	}))
	defer srv.Close()

	g := NewPagSeguroGateway(PagSeguroConfig{BaseURL: srv.URL + "/", Token: "secret"})
	res, err := g.Status(context.Background(), "CHAR_9")
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusDeclined, res.Status)
}

func TestSimulatedGateway(t *testing.T) {
	g := NewSimulatedGateway(logger.Discard())
	ctx := context.Background()
	amount := decimal.RequireFromString("10.00")

	pix, err := g.Charge(ctx, ChargeRequest{Reference: "f", Amount: amount, Method: domain.PaymentMethodPix})
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusWaiting, pix.Status)
	assert.NotEmpty(t, pix.MethodData["qr_code"])

	boleto, err := g.Charge(ctx, ChargeRequest{Reference: "f", Amount: amount, Method: domain.PaymentMethodBoleto})
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusWaiting, boleto.Status)
	assert.NotEmpty(t, boleto.MethodData["barcode"])

	card, err := g.Charge(ctx, ChargeRequest{Reference: "f", Amount: amount, Method: domain.PaymentMethodCreditCard})
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusPaid, card.Status)
	assert.NotEqual(t, pix.TransactionID, card.TransactionID)

	_, err = g.Charge(ctx, ChargeRequest{Method: "CASH"})
	assert.Error(t, err)
}

func TestSimulatedGateway_StatusFollowsCharge(t *testing.T) {
	g := NewSimulatedGateway(logger.Discard())
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()
	amount := decimal.RequireFromString("10.00")

	pix, err := g.Charge(ctx, ChargeRequest{Reference: "f", Amount: amount, Method: domain.PaymentMethodPix})
	require.NoError(t, err)

	status, err := g.Status(ctx, pix.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusWaiting, status.Status)

	now = now.Add(simulatedSettleAfter)
	status, err = g.Status(ctx, pix.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusPaid, status.Status)

	_, err = g.Status(ctx, "TXN_UNKNOWN")
	assert.Error(t, err)
}

func TestBaseURLFor(t *testing.T) {
	assert.Equal(t, ProductionURL, BaseURLFor("production"))
	assert.Equal(t, SandboxURL, BaseURLFor("sandbox"))
	assert.Equal(t, SandboxURL, BaseURLFor(""))
}
