package handler

import (
	"net/http"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/pkg/response"
)

type FineHandler struct {
	service FineService
}

func NewFineHandler(service FineService) *FineHandler {
	return &FineHandler{service: service}
}

// Sweep handles POST /fines/sweep, the manual trigger of the daily fine run.
func (h *FineHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	created, err := h.service.Sweep(r.Context(), actor)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if created == nil {
		created = []*domain.Fine{}
	}

	response.Success(w, domain.SweepResponse{Created: created})
}

func (h *FineHandler) ListFines(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	fines, err := h.service.ListFines(r.Context(), actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.FineListResponse{Items: fines})
}

func (h *FineHandler) ListBorrowerFines(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	borrowerID, err := pathInt64(r, "userId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	fines, err := h.service.ListBorrowerFines(r.Context(), actor, borrowerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.FineListResponse{Items: fines})
}

// PendingSummary handles GET /fines/pending/user/{userId}
func (h *FineHandler) PendingSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	borrowerID, err := pathInt64(r, "userId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	summary, err := h.service.PendingSummary(r.Context(), actor, borrowerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, summary)
}
