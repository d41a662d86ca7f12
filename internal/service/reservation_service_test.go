package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/mailer"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
)

func TestCreateReservation(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, h *harness)
		itemID   int64
		kind     customError.Kind
		sentinel error
	}{
		{
			name:     "Failure - Item does not exist",
			itemID:   999,
			kind:     customError.KindNotFound,
			sentinel: customError.ErrItemNotFound,
		},
		{
			name:     "Failure - Item is inactive",
			itemID:   inactiveItem,
			kind:     customError.KindNotFound,
			sentinel: customError.ErrItemNotFound,
		},
		{
			name:     "Failure - Item has free copies",
			itemID:   singleCopyItem,
			kind:     customError.KindConflict,
			sentinel: customError.ErrItemAvailable,
		},
		{
			name: "Failure - Holder of a waiting copy should borrow it",
			setup: func(t *testing.T, h *harness) {
				h.acceptMail()
				loan := h.borrow(t, alice, singleCopyItem)
				h.reserve(t, bob, singleCopyItem)
				_, err := h.loans.ReturnLoan(context.Background(), alice, loan.ID)
				require.NoError(t, err)
			},
			itemID:   singleCopyItem,
			kind:     customError.KindConflict,
			sentinel: customError.ErrItemAvailable,
		},
		{
			name: "Failure - Already queued for the item",
			setup: func(t *testing.T, h *harness) {
				h.borrow(t, alice, singleCopyItem)
				h.reserve(t, bob, singleCopyItem)
			},
			itemID:   singleCopyItem,
			kind:     customError.KindConflict,
			sentinel: customError.ErrReservationExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(t, h)
			}

			res, err := h.reservations.CreateReservation(context.Background(), bob, &domain.CreateReservationRequest{ItemID: tt.itemID})
			assert.Nil(t, res)
			assertKind(t, err, tt.kind, tt.sentinel)
		})
	}
}

func TestPromoteNext_FIFO(t *testing.T) {
	h := newHarness(t)
	h.acceptMail()

	loan := h.borrow(t, alice, singleCopyItem)
	first := h.reserve(t, bob, singleCopyItem)
	h.clock.Advance(time.Minute)
	second := h.reserve(t, carol, singleCopyItem)

	_, err := h.loans.ReturnLoan(context.Background(), alice, loan.ID)
	require.NoError(t, err)

	got, err := h.store.Reservations().GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusAwaitingPickup, got.Status)

	got, err = h.store.Reservations().GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusActive, got.Status)

	// a repeated return and a direct promotion leave the held copy alone
	_, err = h.loans.ReturnLoan(context.Background(), alice, loan.ID)
	require.NoError(t, err)
	promoted, err := h.reservations.PromoteNext(context.Background(), singleCopyItem)
	require.NoError(t, err)
	assert.Nil(t, promoted)

	got, err = h.store.Reservations().GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusActive, got.Status)
	h.mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestPromoteNext_OnePerCall(t *testing.T) {
	h := newHarness(t)
	h.acceptMail()

	first := h.borrow(t, alice, twoCopyItem)
	second := h.borrow(t, bob, twoCopyItem)
	h.reserve(t, carol, twoCopyItem)
	h.clock.Advance(time.Minute)
	h.store.AddUser(domain.Borrower{ID: 4, Name: "Dan", Email: "dan@example.com"})
	dan := h.reserve(t, domain.Actor{UserID: 4, Role: domain.RoleReader}, twoCopyItem)

	_, err := h.loans.ReturnLoan(context.Background(), alice, first.ID)
	require.NoError(t, err)

	got, err := h.store.Reservations().GetByID(context.Background(), dan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusActive, got.Status)

	_, err = h.loans.ReturnLoan(context.Background(), bob, second.ID)
	require.NoError(t, err)

	got, err = h.store.Reservations().GetByID(context.Background(), dan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusAwaitingPickup, got.Status)
}

func TestCancelReservation(t *testing.T) {
	t.Run("Success - Cancelling a held copy promotes the next in line", func(t *testing.T) {
		h := newHarness(t)
		h.acceptMail()

		loan := h.borrow(t, alice, singleCopyItem)
		held := h.reserve(t, bob, singleCopyItem)
		h.clock.Advance(time.Minute)
		next := h.reserve(t, carol, singleCopyItem)
		_, err := h.loans.ReturnLoan(context.Background(), alice, loan.ID)
		require.NoError(t, err)

		cancelled, err := h.reservations.CancelReservation(context.Background(), bob, held.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusCancelled, cancelled.Status)

		got, err := h.store.Reservations().GetByID(context.Background(), next.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusAwaitingPickup, got.Status)
	})

	t.Run("Failure - Closed reservations cannot be cancelled", func(t *testing.T) {
		h := newHarness(t)
		h.borrow(t, alice, singleCopyItem)
		res := h.reserve(t, bob, singleCopyItem)

		_, err := h.reservations.CancelReservation(context.Background(), librarian, res.ID)
		require.NoError(t, err)

		_, err = h.reservations.CancelReservation(context.Background(), bob, res.ID)
		assertKind(t, err, customError.KindConflict, customError.ErrReservationClosed)
	})

	t.Run("Failure - Another reader", func(t *testing.T) {
		h := newHarness(t)
		h.borrow(t, alice, singleCopyItem)
		res := h.reserve(t, bob, singleCopyItem)

		_, err := h.reservations.CancelReservation(context.Background(), carol, res.ID)
		assertKind(t, err, customError.KindForbidden, customError.ErrForbidden)
	})

	t.Run("Failure - Unknown reservation", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.reservations.CancelReservation(context.Background(), bob, uuid.New())
		assertKind(t, err, customError.KindNotFound, customError.ErrReservationNotFound)
	})
}

func TestExpireStale(t *testing.T) {
	h := newHarness(t)
	h.mailer.On("Send", mock.Anything, mailer.KindReservationAvailable, mock.Anything, mock.Anything).Return(nil)

	loan := h.borrow(t, alice, singleCopyItem)
	held := h.reserve(t, bob, singleCopyItem)
	h.clock.Advance(time.Minute)
	next := h.reserve(t, carol, singleCopyItem)
	_, err := h.loans.ReturnLoan(context.Background(), alice, loan.ID)
	require.NoError(t, err)

	result, err := h.reservations.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.ExpiryResult{}, result)

	h.clock.Advance(49 * time.Hour)
	result, err = h.reservations.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.Promoted)
	assert.Equal(t, 0, result.Failed)

	got, err := h.store.Reservations().GetByID(context.Background(), held.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusExpired, got.Status)

	got, err = h.store.Reservations().GetByID(context.Background(), next.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusAwaitingPickup, got.Status)
	assert.Equal(t, h.clock.Now().Add(48*time.Hour), *got.ExpiresAt)
}

func TestListReservations(t *testing.T) {
	h := newHarness(t)
	h.borrow(t, alice, singleCopyItem)
	first := h.reserve(t, bob, singleCopyItem)
	h.clock.Advance(time.Minute)
	second := h.reserve(t, carol, singleCopyItem)

	_, err := h.reservations.ListOpen(context.Background(), bob)
	assertKind(t, err, customError.KindForbidden, nil)

	open, err := h.reservations.ListOpen(context.Background(), librarian)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, first.ID, open[0].ID)
	assert.Equal(t, second.ID, open[1].ID)

	mine, err := h.reservations.ListBorrowerReservations(context.Background(), carol, carolID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID)
}
