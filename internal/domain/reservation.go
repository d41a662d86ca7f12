package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusActive         ReservationStatus = "active"
	ReservationStatusAwaitingPickup ReservationStatus = "awaiting_pickup"
	ReservationStatusFulfilled      ReservationStatus = "fulfilled"
	ReservationStatusExpired        ReservationStatus = "expired"
	ReservationStatusCancelled      ReservationStatus = "cancelled"
)

// Reservation is a borrower's place in the queue for a fully checked-out item.
type Reservation struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	ItemID     int64             `json:"item_id" db:"item_id"`
	BorrowerID int64             `json:"borrower_id" db:"borrower_id"`
	Status     ReservationStatus `json:"status" db:"status"`
	NotifiedAt *time.Time        `json:"notified_at" db:"notified_at"`
	ExpiresAt  *time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

// IsOpen is true while the reservation is queued or waiting to be picked up.
func (r *Reservation) IsOpen() bool {
	return r.Status == ReservationStatusActive || r.Status == ReservationStatusAwaitingPickup
}

// Promote moves the reservation to awaiting pickup with a hold window starting at now.
func (r *Reservation) Promote(now time.Time, hold time.Duration) {
	expires := now.Add(hold)
	notified := now
	r.Status = ReservationStatusAwaitingPickup
	r.NotifiedAt = &notified
	r.ExpiresAt = &expires
	r.UpdatedAt = now
}

// PickupExpired reports whether an awaiting-pickup hold ran out before now.
func (r *Reservation) PickupExpired(now time.Time) bool {
	return r.Status == ReservationStatusAwaitingPickup && r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

type CreateReservationRequest struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
}

type ReservationListResponse struct {
	Items []*Reservation `json:"items"`
}
