package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/segyhp/circulation-engine/internal/domain"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/response"
)

const webhookTokenHeader = "X-Webhook-Token"

type PaymentHandler struct {
	service      PaymentService
	validator    *validator.Validate
	webhookToken string
}

// NewPaymentHandler builds the payment endpoints. An empty webhookToken leaves
// the webhook unauthenticated.
func NewPaymentHandler(service PaymentService, webhookToken string) *PaymentHandler {
	return &PaymentHandler{
		service:      service,
		validator:    validator.New(),
		webhookToken: webhookToken,
	}
}

// CreatePayment handles POST /payments
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req domain.CreatePaymentRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	resp, err := h.service.CreatePayment(r.Context(), actor, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, resp)
}

// GetStatus handles GET /payments/status/{transactionId}
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	payment, err := h.service.Reconcile(r.Context(), actor, mux.Vars(r)["transactionId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payment)
}

// Webhook handles POST /payments/webhook from the gateway.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookToken != "" {
		got := r.Header.Get(webhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookToken)) != 1 {
			response.FromError(w, customError.WrapUnauthorized(errors.New("invalid webhook token")))
			return
		}
	}

	var notification domain.WebhookNotification
	if err := decode(r, h.validator, &notification); err != nil {
		response.FromError(w, err)
		return
	}

	payment, err := h.service.HandleWebhook(r.Context(), &notification)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payment)
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.PaymentListResponse{Items: payments})
}

func (h *PaymentHandler) ListBorrowerPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	borrowerID, err := pathInt64(r, "userId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	payments, err := h.service.ListBorrowerPayments(r.Context(), actor, borrowerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.PaymentListResponse{Items: payments})
}
