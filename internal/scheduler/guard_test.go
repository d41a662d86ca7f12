package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/internal/mocks"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	apperrors "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/logger"
)

func TestGuard_LockBackendDown(t *testing.T) {
	locker := &mocks.MockLocker{}
	down := errors.New("dial tcp: connection refused")
	locker.On("TryLock", mock.Anything, "circulation:lock:fine-sweep", 5*time.Minute).Return(nil, down).Once()

	g := scheduler.NewGuard(locker, 5*time.Minute, logger.Discard())
	ran := false
	_, err := scheduler.Run(context.Background(), g, scheduler.TaskFineSweep, func(ctx context.Context) (int, error) {
		ran = true
		return 1, nil
	})

	require.Error(t, err)
	assert.False(t, ran)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.ErrorIs(t, err, down)
	locker.AssertExpectations(t)
}

func TestGuard_UnlockFailureKeepsResult(t *testing.T) {
	locker := &mocks.MockLocker{}
	released := 0
	unlock := scheduler.Unlock(func(ctx context.Context) error {
		released++
		return errors.New("lock token mismatch")
	})
	locker.On("TryLock", mock.Anything, "circulation:lock:reservation-expiry", 15*time.Minute).Return(unlock, nil).Once()

	g := scheduler.NewGuard(locker, 0, logger.Discard())
	got, err := scheduler.Run(context.Background(), g, scheduler.TaskReservationExpiry, func(ctx context.Context) (string, error) {
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 1, released)
	locker.AssertExpectations(t)
}
