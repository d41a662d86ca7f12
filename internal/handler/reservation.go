package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/pkg/response"
)

type ReservationHandler struct {
	service   ReservationService
	validator *validator.Validate
}

func NewReservationHandler(service ReservationService) *ReservationHandler {
	return &ReservationHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateReservation handles POST /reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req domain.CreateReservationRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), actor, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, reservation)
}

// CancelReservation handles DELETE /reservations/{reservationId}
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	reservationID, err := pathUUID(r, "reservationId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	reservation, err := h.service.CancelReservation(r.Context(), actor, reservationID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, reservation)
}

func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	reservations, err := h.service.ListOpen(r.Context(), actor)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.ReservationListResponse{Items: reservations})
}

func (h *ReservationHandler) ListBorrowerReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	borrowerID, err := pathInt64(r, "userId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	reservations, err := h.service.ListBorrowerReservations(r.Context(), actor, borrowerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, domain.ReservationListResponse{Items: reservations})
}
