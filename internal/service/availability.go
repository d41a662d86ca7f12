package service

import (
	"context"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
)

// freeCopies counts the copies of item that borrowerID may take now: copies not
// checked out, less those held for other borrowers' awaiting-pickup
// reservations. It also returns the borrower's own held reservation, if any.
// A zero borrowerID counts every hold. The caller holds the item lock.
func freeCopies(
	ctx context.Context,
	items repository.ItemRepository,
	reservations repository.ReservationRepository,
	item *domain.Item,
	borrowerID int64,
) (int, *domain.Reservation, error) {
	checkedOut, err := items.CountCheckedOut(ctx, item.ID)
	if err != nil {
		return 0, nil, err
	}
	held, err := reservations.CountAwaitingPickup(ctx, item.ID)
	if err != nil {
		return 0, nil, err
	}

	var own *domain.Reservation
	if borrowerID > 0 && held > 0 {
		own, err = reservations.FindAwaitingPickup(ctx, borrowerID, item.ID)
		if isNotFound(err) {
			own, err = nil, nil
		}
		if err != nil {
			return 0, nil, err
		}
		if own != nil {
			held--
		}
	}

	return item.Available(checkedOut) - held, own, nil
}
