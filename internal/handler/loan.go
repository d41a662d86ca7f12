package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/pkg/response"
)

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req domain.CreateLoanRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), actor, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, loan)
}

// ReturnLoan handles PUT /loans/{loanId}/return
func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.service.ReturnLoan(r.Context(), actor, loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// RenewLoan handles PUT /loans/{loanId}/renew
func (h *LoanHandler) RenewLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.service.RenewLoan(r.Context(), actor, loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	loans, err := h.service.ListLoans(r.Context(), actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.LoanListResponse{Items: loans})
}

func (h *LoanHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	loans, err := h.service.ListOverdue(r.Context(), actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.LoanListResponse{Items: loans})
}

// ListBorrowerLoans handles GET /loans/user/{userId}
func (h *LoanHandler) ListBorrowerLoans(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	borrowerID, err := pathInt64(r, "userId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	loans, err := h.service.ListBorrowerLoans(r.Context(), actor, borrowerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.LoanListResponse{Items: loans})
}
