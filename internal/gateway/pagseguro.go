package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/pkg/utils"
)

const (
	SandboxURL    = "https://sandbox.api.pagseguro.com"
	ProductionURL = "https://api.pagseguro.com"

	apiVersion     = "4.0"
	defaultTaxID   = "00000000000"
	pixExpiration  = 30 * time.Minute
	boletoDueAfter = 3 * 24 * time.Hour
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var tracer = otel.Tracer("github.com/segyhp/circulation-engine/internal/gateway")

type PagSeguroConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// BaseURLFor picks the API host for PAGSEGURO_ENV.
func BaseURLFor(env string) string {
	if env == "production" || env == "prod" {
		return ProductionURL
	}
	return SandboxURL
}

type PagSeguroGateway struct {
	baseURL string
	token   string
	client  *http.Client
	now     func() time.Time
}

func NewPagSeguroGateway(cfg PagSeguroConfig) *PagSeguroGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PagSeguroGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type holder struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
}

type card struct {
	Number       string `json:"number"`
	ExpMonth     string `json:"exp_month"`
	ExpYear      string `json:"exp_year"`
	SecurityCode string `json:"security_code"`
	Holder       holder `json:"holder"`
}

type paymentMethod struct {
	Type         string         `json:"type"`
	Installments int            `json:"installments,omitempty"`
	Capture      bool           `json:"capture,omitempty"`
	Card         *card          `json:"card,omitempty"`
	Pix          map[string]any `json:"pix,omitempty"`
	Boleto       map[string]any `json:"boleto,omitempty"`
}

type customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	TaxID string `json:"tax_id"`
}

type chargePayload struct {
	ReferenceID   string        `json:"reference_id"`
	Description   string        `json:"description"`
	Amount        amount        `json:"amount"`
	PaymentMethod paymentMethod `json:"payment_method"`
	Customer      customer      `json:"customer"`
}

// cardData is the card section of CreatePaymentRequest.MethodData.
type cardData struct {
	Number       string `json:"number"`
	ExpMonth     string `json:"exp_month"`
	ExpYear      string `json:"exp_year"`
	SecurityCode string `json:"security_code"`
	HolderName   string `json:"holder_name"`
	Installments int    `json:"installments"`
}

type chargeResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ReferenceID   string `json:"reference_id"`
	PaymentMethod struct {
		Pix struct {
			QRCode         string `json:"qr_code"`
			QRCodeBase64   string `json:"qr_code_base64"`
			ExpirationDate string `json:"expiration_date"`
		} `json:"pix"`
		Boleto struct {
			Barcode          string `json:"barcode"`
			FormattedBarcode string `json:"formatted_barcode"`
		} `json:"boleto"`
	} `json:"payment_method"`
	PaymentResponse struct {
		Code string `json:"code"`
	} `json:"payment_response"`
	ErrorMessages []struct {
		Description string `json:"description"`
	} `json:"error_messages"`
}

func (g *PagSeguroGateway) buildPayload(req ChargeRequest) (*chargePayload, error) {
	taxID := req.Customer.TaxID
	if taxID == "" {
		taxID = defaultTaxID
	}

	payload := &chargePayload{
		ReferenceID: "fine_" + req.Reference,
		Description: "Library fine " + req.Reference,
		Amount:      amount{Value: utils.ToCents(req.Amount), Currency: "BRL"},
		PaymentMethod: paymentMethod{
			Type: string(req.Method),
		},
		Customer: customer{Name: req.Customer.Name, Email: req.Customer.Email, TaxID: taxID},
	}

	now := g.now()
	switch req.Method {
	case domain.PaymentMethodPix:
		payload.PaymentMethod.Pix = map[string]any{
			"expiration_date": now.Add(pixExpiration).UTC().Format(time.RFC3339),
		}
	case domain.PaymentMethodBoleto:
		payload.PaymentMethod.Boleto = map[string]any{
			"due_date": now.Add(boletoDueAfter).UTC().Format("2006-01-02"),
		}
	case domain.PaymentMethodCreditCard:
		var cd cardData
		raw, err := json.Marshal(req.MethodData)
		if err != nil {
			return nil, fmt.Errorf("encode card data: %w", err)
		}
		if err := json.Unmarshal(raw, &cd); err != nil {
			return nil, fmt.Errorf("decode card data: %w", err)
		}
		if cd.Number == "" {
			return nil, fmt.Errorf("card number is required")
		}
		if cd.Installments <= 0 {
			cd.Installments = 1
		}
		payload.PaymentMethod.Installments = cd.Installments
		payload.PaymentMethod.Capture = true
		payload.PaymentMethod.Card = &card{
			Number:       strings.ReplaceAll(cd.Number, " ", ""),
			ExpMonth:     cd.ExpMonth,
			ExpYear:      cd.ExpYear,
			SecurityCode: cd.SecurityCode,
			Holder:       holder{Name: cd.HolderName, TaxID: taxID},
		}
	default:
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}

	return payload, nil
}

func (g *PagSeguroGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, span := tracer.Start(ctx, "pagseguro.charge", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("payment.method", string(req.Method)))

	payload, err := g.buildPayload(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var resp chargeResponse
	raw, err := g.do(ctx, http.MethodPost, "/charges", payload, &resp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &ChargeResult{
		TransactionID: resp.ID,
		Status:        resp.Status,
		Raw:           raw,
		MethodData:    map[string]any{},
	}
	switch req.Method {
	case domain.PaymentMethodPix:
		result.MethodData["qr_code"] = resp.PaymentMethod.Pix.QRCode
		result.MethodData["qr_code_base64"] = resp.PaymentMethod.Pix.QRCodeBase64
		result.MethodData["expiration_date"] = resp.PaymentMethod.Pix.ExpirationDate
	case domain.PaymentMethodBoleto:
		result.MethodData["barcode"] = resp.PaymentMethod.Boleto.Barcode
		result.MethodData["formatted_barcode"] = resp.PaymentMethod.Boleto.FormattedBarcode
	case domain.PaymentMethodCreditCard:
		result.MethodData["authorization_code"] = resp.PaymentResponse.Code
	}
	span.SetAttributes(attribute.String("payment.status", resp.Status))
	return result, nil
}

func (g *PagSeguroGateway) Status(ctx context.Context, transactionID string) (*StatusResult, error) {
	ctx, span := tracer.Start(ctx, "pagseguro.status", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var resp chargeResponse
	raw, err := g.do(ctx, http.MethodGet, "/charges/"+transactionID, nil, &resp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &StatusResult{TransactionID: resp.ID, Status: resp.Status, Raw: raw}, nil
}

func (g *PagSeguroGateway) do(ctx context.Context, method, path string, body any, out *chargeResponse) (domain.RawPayload, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("x-api-version", apiVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagseguro %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg := resp.Status
		if len(out.ErrorMessages) > 0 && out.ErrorMessages[0].Description != "" {
			msg = out.ErrorMessages[0].Description
		}
		return nil, fmt.Errorf("pagseguro %s %s: %s", method, path, msg)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("pagseguro %s %s: response without charge id", method, path)
	}

	return domain.RawPayload(raw), nil
}
