package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/gateway"
	"github.com/segyhp/circulation-engine/internal/repository"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
)

func TestDeleteBorrower(t *testing.T) {
	t.Run("Success - Cascades through the borrower's records", func(t *testing.T) {
		h := newHarness(t)
		fine := h.pendingFine(t)
		h.gateway.On("Charge", mock.Anything, mock.Anything).Return(&gateway.ChargeResult{
			TransactionID: "TXN9",
			Status:        domain.GatewayStatusPaid,
		}, nil)
		_, err := h.payments.CreatePayment(context.Background(), alice, &domain.CreatePaymentRequest{
			FineID: fine.ID,
			Method: domain.PaymentMethodCreditCard,
		})
		require.NoError(t, err)

		loans, err := h.loans.ListBorrowerLoans(context.Background(), alice, aliceID)
		require.NoError(t, err)
		for _, l := range loans {
			_, err := h.loans.ReturnLoan(context.Background(), alice, l.ID)
			require.NoError(t, err)
		}

		require.NoError(t, h.users.DeleteBorrower(context.Background(), admin, aliceID))

		_, err = h.store.Users().GetByID(context.Background(), aliceID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		left, err := h.store.Loans().List(context.Background(), repository.LoanFilter{BorrowerID: aliceID})
		require.NoError(t, err)
		assert.Empty(t, left)
		fines, err := h.store.Fines().List(context.Background(), repository.FineFilter{BorrowerID: aliceID})
		require.NoError(t, err)
		assert.Empty(t, fines)
		payments, err := h.store.Payments().List(context.Background(), repository.PaymentFilter{BorrowerID: aliceID})
		require.NoError(t, err)
		assert.Empty(t, payments)
	})

	t.Run("Failure - Open loans block deletion", func(t *testing.T) {
		h := newHarness(t)
		h.borrow(t, alice, singleCopyItem)

		err := h.users.DeleteBorrower(context.Background(), admin, aliceID)
		assertKind(t, err, customError.KindConflict, customError.ErrUserHasOpenLoans)

		_, err = h.store.Users().GetByID(context.Background(), aliceID)
		assert.NoError(t, err)
	})

	t.Run("Failure - Admins only", func(t *testing.T) {
		h := newHarness(t)
		err := h.users.DeleteBorrower(context.Background(), librarian, aliceID)
		assertKind(t, err, customError.KindForbidden, customError.ErrForbidden)
	})

	t.Run("Failure - Cannot delete oneself", func(t *testing.T) {
		h := newHarness(t)
		err := h.users.DeleteBorrower(context.Background(), admin, adminID)
		assertKind(t, err, customError.KindConflict, customError.ErrSelfDelete)
	})

	t.Run("Failure - Unknown user", func(t *testing.T) {
		h := newHarness(t)
		err := h.users.DeleteBorrower(context.Background(), admin, 999)
		assertKind(t, err, customError.KindNotFound, customError.ErrUserNotFound)
	})
}
