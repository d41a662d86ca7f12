package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
)

// ReservationNotifier tells a borrower their reserved copy is waiting.
type ReservationNotifier interface {
	NotifyReservationAvailable(ctx context.Context, reservation *domain.Reservation) error
}

type ReservationService struct {
	tx           repository.Transactor
	items        repository.ItemRepository
	reservations repository.ReservationRepository
	notifier     ReservationNotifier
	guard        *scheduler.Guard
	clock        Clock
	config       *config.Config
	logger       *slog.Logger
}

func NewReservationService(
	tx repository.Transactor,
	items repository.ItemRepository,
	reservations repository.ReservationRepository,
	notifier ReservationNotifier,
	guard *scheduler.Guard,
	clock Clock,
	config *config.Config,
	logger *slog.Logger,
) *ReservationService {
	return &ReservationService{
		tx:           tx,
		items:        items,
		reservations: reservations,
		notifier:     notifier,
		guard:        guard,
		clock:        clock,
		config:       config,
		logger:       logger,
	}
}

// CreateReservation queues the actor for an item with no copy free for them:
// every copy is checked out or held for another borrower.
func (s *ReservationService) CreateReservation(ctx context.Context, actor domain.Actor, request *domain.CreateReservationRequest) (*domain.Reservation, error) {
	var reservation *domain.Reservation

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, request.ItemID)
		if isNotFound(err) {
			return customError.WrapItemNotFound(request.ItemID)
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if !item.Active {
			return customError.WrapItemNotFound(request.ItemID)
		}

		free, _, err := freeCopies(ctx, s.items, s.reservations, item, actor.UserID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if free > 0 {
			return customError.WrapItemAvailable(item.ID)
		}

		exists, err := s.reservations.HasActive(ctx, actor.UserID, item.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if exists {
			return customError.WrapReservationExists(item.ID)
		}

		now := s.clock.Now()
		reservation = &domain.Reservation{
			ID:         uuid.New(),
			ItemID:     item.ID,
			BorrowerID: actor.UserID,
			Status:     domain.ReservationStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.reservations.Create(ctx, reservation); err != nil {
			if isConflict(err) {
				return customError.WrapReservationExists(item.ID)
			}
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation created", "reservation_id", reservation.ID, "item_id", reservation.ItemID, "borrower_id", reservation.BorrowerID)
	return reservation, nil
}

// PromoteNext moves the oldest active reservation for the item to awaiting
// pickup, at most one per call, then mails its borrower. It returns nil when the
// queue is empty or every free copy is already held. A mail failure does not
// undo the promotion.
func (s *ReservationService) PromoteNext(ctx context.Context, itemID int64) (*domain.Reservation, error) {
	var promoted *domain.Reservation

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, itemID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		free, _, err := freeCopies(ctx, s.items, s.reservations, item, 0)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if free <= 0 {
			return nil
		}

		head, err := s.reservations.Head(ctx, itemID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		head.Promote(s.clock.Now(), s.config.Business.ReservationHold)
		if err := s.reservations.Update(ctx, head); err != nil {
			return customError.WrapDatabaseError(err)
		}
		promoted = head
		return nil
	})
	if err != nil || promoted == nil {
		return nil, err
	}

	s.logger.Info("reservation promoted", "reservation_id", promoted.ID, "item_id", itemID, "expires_at", promoted.ExpiresAt)

	if err := s.notifier.NotifyReservationAvailable(ctx, promoted); err != nil {
		s.logger.Error("failed to notify reservation holder", "reservation_id", promoted.ID, "error", err)
	}
	return promoted, nil
}

// CancelReservation closes an open reservation. Cancelling a held copy passes it
// to the next borrower in line.
func (s *ReservationService) CancelReservation(ctx context.Context, actor domain.Actor, reservationID uuid.UUID) (*domain.Reservation, error) {
	var (
		reservation *domain.Reservation
		wasHeld     bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		reservation, err = s.reservations.GetByIDForUpdate(ctx, reservationID)
		if isNotFound(err) {
			return customError.WrapReservationNotFound(reservationID.String())
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, reservation.BorrowerID, "cancel reservation"); err != nil {
			return err
		}
		if !reservation.IsOpen() {
			return customError.WrapReservationClosed(reservationID.String())
		}

		wasHeld = reservation.Status == domain.ReservationStatusAwaitingPickup
		reservation.Status = domain.ReservationStatusCancelled
		reservation.UpdatedAt = s.clock.Now()
		if err := s.reservations.Update(ctx, reservation); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation cancelled", "reservation_id", reservation.ID, "was_held", wasHeld)

	if wasHeld {
		if _, err := s.PromoteNext(ctx, reservation.ItemID); err != nil {
			s.logger.Error("failed to promote reservation", "item_id", reservation.ItemID, "error", err)
		}
	}
	return reservation, nil
}

// ExpireStale expires held reservations whose pickup window has passed and
// promotes the next holder for each affected item. Only one sweep runs at a time.
func (s *ReservationService) ExpireStale(ctx context.Context) (*domain.ExpiryResult, error) {
	return scheduler.Run(ctx, s.guard, scheduler.TaskReservationExpiry, s.expireStale)
}

func (s *ReservationService) expireStale(ctx context.Context) (*domain.ExpiryResult, error) {
	now := s.clock.Now()
	stale, err := s.reservations.ListExpired(ctx, now)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := &domain.ExpiryResult{}
	items := make(map[int64]struct{})
	for _, r := range stale {
		expired, err := s.expire(ctx, r.ID, now)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to expire reservation", "reservation_id", r.ID, "error", err)
			continue
		}
		if expired {
			result.Expired++
			items[r.ItemID] = struct{}{}
		}
	}

	for itemID := range items {
		promoted, err := s.PromoteNext(ctx, itemID)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to promote reservation", "item_id", itemID, "error", err)
			continue
		}
		if promoted != nil {
			result.Promoted++
		}
	}

	s.logger.Info("reservation expiry finished", "expired", result.Expired, "promoted", result.Promoted, "failed", result.Failed)
	return result, nil
}

// expire re-reads the reservation under lock so a pickup racing the sweep wins.
func (s *ReservationService) expire(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var expired bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !r.PickupExpired(now) {
			return nil
		}
		r.Status = domain.ReservationStatusExpired
		r.UpdatedAt = now
		if err := s.reservations.Update(ctx, r); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

// ListOpen returns queued and held reservations in queue order.
func (s *ReservationService) ListOpen(ctx context.Context, actor domain.Actor) ([]*domain.Reservation, error) {
	if err := authorize(actor, domain.CapabilityStaff, 0, "list reservations"); err != nil {
		return nil, err
	}
	out, err := s.reservations.List(ctx, repository.ReservationFilter{OpenOnly: true})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return out, nil
}

func (s *ReservationService) ListBorrowerReservations(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Reservation, error) {
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, borrowerID, "list reservations"); err != nil {
		return nil, err
	}
	out, err := s.reservations.List(ctx, repository.ReservationFilter{BorrowerID: borrowerID})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return out, nil
}
