package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/circulation-engine/pkg/response"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health       *HealthHandler
	Loans        *LoanHandler
	Reservations *ReservationHandler
	Fines        *FineHandler
	Payments     *PaymentHandler
	Users        *UserHandler
}

// NewRouter mounts the API under /api/v1. Health checks and the gateway
// webhook are public; every other route requires a bearer token.
func NewRouter(h Handlers, auth func(http.Handler) http.Handler, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/payments/webhook", h.Payments.Webhook).Methods(http.MethodPost)

	secured := api.NewRoute().Subrouter()
	secured.Use(auth)

	secured.HandleFunc("/loans", h.Loans.CreateLoan).Methods(http.MethodPost)
	secured.HandleFunc("/loans", h.Loans.ListLoans).Methods(http.MethodGet)
	secured.HandleFunc("/loans/overdue", h.Loans.ListOverdue).Methods(http.MethodGet)
	secured.HandleFunc("/loans/user/{userId:[0-9]+}", h.Loans.ListBorrowerLoans).Methods(http.MethodGet)
	secured.HandleFunc("/loans/{loanId}/return", h.Loans.ReturnLoan).Methods(http.MethodPut)
	secured.HandleFunc("/loans/{loanId}/renew", h.Loans.RenewLoan).Methods(http.MethodPut)

	secured.HandleFunc("/reservations", h.Reservations.CreateReservation).Methods(http.MethodPost)
	secured.HandleFunc("/reservations", h.Reservations.ListReservations).Methods(http.MethodGet)
	secured.HandleFunc("/reservations/user/{userId:[0-9]+}", h.Reservations.ListBorrowerReservations).Methods(http.MethodGet)
	secured.HandleFunc("/reservations/{reservationId}", h.Reservations.CancelReservation).Methods(http.MethodDelete)

	secured.HandleFunc("/fines/sweep", h.Fines.Sweep).Methods(http.MethodPost)
	secured.HandleFunc("/fines", h.Fines.ListFines).Methods(http.MethodGet)
	secured.HandleFunc("/fines/user/{userId:[0-9]+}", h.Fines.ListBorrowerFines).Methods(http.MethodGet)
	secured.HandleFunc("/fines/pending/user/{userId:[0-9]+}", h.Fines.PendingSummary).Methods(http.MethodGet)

	secured.HandleFunc("/payments", h.Payments.CreatePayment).Methods(http.MethodPost)
	secured.HandleFunc("/payments", h.Payments.ListPayments).Methods(http.MethodGet)
	secured.HandleFunc("/payments/status/{transactionId}", h.Payments.GetStatus).Methods(http.MethodGet)
	secured.HandleFunc("/payments/user/{userId:[0-9]+}", h.Payments.ListBorrowerPayments).Methods(http.MethodGet)

	secured.HandleFunc("/users/{userId:[0-9]+}", h.Users.DeleteUser).Methods(http.MethodDelete)

	// CORS wraps the router so preflight requests never reach method matching.
	return response.CORSMiddleware(router)
}
