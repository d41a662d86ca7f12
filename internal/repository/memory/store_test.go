package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
)

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := New()
	s.AddItem(domain.Item{ID: 1, Title: "A", TotalCopies: 1, Active: true})
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Items().IncrementPopularity(ctx, 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	item, err := s.Items().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Popularity)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	loan := &domain.Loan{ID: uuid.New(), ItemID: 1, BorrowerID: 2, Status: domain.LoanStatusActive}
	require.NoError(t, s.Loans().Create(ctx, loan))

	got, err := s.Loans().GetByID(ctx, loan.ID)
	require.NoError(t, err)
	got.Status = domain.LoanStatusReturned

	again, err := s.Loans().GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, again.Status)
}

func TestStore_OpenLoanConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Loans().Create(ctx, &domain.Loan{ID: uuid.New(), ItemID: 1, BorrowerID: 2}))

	err := s.Loans().Create(ctx, &domain.Loan{ID: uuid.New(), ItemID: 1, BorrowerID: 2})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestStore_HeadFIFO(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &domain.Reservation{ID: uuid.New(), ItemID: 9, BorrowerID: 1, Status: domain.ReservationStatusActive, CreatedAt: base}
	second := &domain.Reservation{ID: uuid.New(), ItemID: 9, BorrowerID: 2, Status: domain.ReservationStatusActive, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, s.Reservations().Create(ctx, second))
	require.NoError(t, s.Reservations().Create(ctx, first))

	head, err := s.Reservations().Head(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, first.ID, head.ID)

	_, err = s.Reservations().Head(ctx, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_CountAwaitingPickup(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	held := &domain.Reservation{ID: uuid.New(), ItemID: 9, BorrowerID: 1, Status: domain.ReservationStatusActive, CreatedAt: now}
	held.Promote(now, 48*time.Hour)
	require.NoError(t, s.Reservations().Create(ctx, held))
	require.NoError(t, s.Reservations().Create(ctx, &domain.Reservation{ID: uuid.New(), ItemID: 9, BorrowerID: 2, Status: domain.ReservationStatusActive, CreatedAt: now}))
	require.NoError(t, s.Reservations().Create(ctx, &domain.Reservation{ID: uuid.New(), ItemID: 9, BorrowerID: 3, Status: domain.ReservationStatusExpired, CreatedAt: now}))

	n, err := s.Reservations().CountAwaitingPickup(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Reservations().CountAwaitingPickup(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_OnePendingPaymentPerFine(t *testing.T) {
	s := New()
	ctx := context.Background()
	fineID := uuid.New()

	has, err := s.Payments().HasPending(ctx, fineID)
	require.NoError(t, err)
	assert.False(t, has)

	first := &domain.Payment{ID: uuid.New(), FineID: fineID, TransactionID: "T1", Status: domain.PaymentStatusPending}
	require.NoError(t, s.Payments().Create(ctx, first))

	has, err = s.Payments().HasPending(ctx, fineID)
	require.NoError(t, err)
	assert.True(t, has)

	second := &domain.Payment{ID: uuid.New(), FineID: fineID, TransactionID: "T2", Status: domain.PaymentStatusPending}
	assert.ErrorIs(t, s.Payments().Create(ctx, second), repository.ErrConflict)

	first.Status = domain.PaymentStatusRejected
	require.NoError(t, s.Payments().Update(ctx, first))
	require.NoError(t, s.Payments().Create(ctx, second))
}
