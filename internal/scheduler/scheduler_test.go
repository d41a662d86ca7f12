package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestGuard_SharesConcurrentRuns(t *testing.T) {
	g := NewGuard(NewLocalLocker(), time.Minute, logger.Discard())

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})

	var wg, ready sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		ready.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			v, err := Run(context.Background(), g, TaskFineSweep, func(ctx context.Context) (int, error) {
				if atomic.AddInt32(&calls, 1) == 1 {
					close(started)
				}
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGuard_ConflictWhenLockedElsewhere(t *testing.T) {
	locker := NewLocalLocker()
	g := NewGuard(locker, time.Minute, logger.Discard())

	unlock, err := locker.TryLock(context.Background(), lockPrefix+string(TaskFineSweep), time.Minute)
	require.NoError(t, err)

	ran := false
	_, err = Run(context.Background(), g, TaskFineSweep, func(ctx context.Context) (struct{}, error) {
		ran = true
		return struct{}{}, nil
	})
	require.Error(t, err)
	assert.False(t, ran)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrSweepAlreadyRunning)

	require.NoError(t, unlock(context.Background()))

	_, err = Run(context.Background(), g, TaskFineSweep, func(ctx context.Context) (struct{}, error) {
		ran = true
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGuard_KindsAreIndependent(t *testing.T) {
	g := NewGuard(NewLocalLocker(), time.Minute, logger.Discard())

	out, err := Run(context.Background(), g, TaskFineSweep, func(ctx context.Context) (string, error) {
		return Run(ctx, g, TaskDueSoonReminders, func(ctx context.Context) (string, error) {
			return "inner", nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "inner", out)
}

func TestGuard_ReleasesLockOnError(t *testing.T) {
	locker := NewLocalLocker()
	g := NewGuard(locker, time.Minute, logger.Discard())
	boom := errors.New("boom")

	_, err := Run(context.Background(), g, TaskOverdueEscalations, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	unlock, err := locker.TryLock(context.Background(), lockPrefix+string(TaskOverdueEscalations), time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))
}

func TestLocalLocker_Expires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.clock = func() time.Time { return now }

	_, err := l.TryLock(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	now = now.Add(2 * time.Minute)
	_, err = l.TryLock(context.Background(), "k", time.Minute)
	assert.NoError(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	at := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	s := New(time.UTC, fixedClock{at}, time.Second, logger.Discard())

	var gotDeadline bool
	require.NoError(t, s.Register(TaskDueSoonReminders, "0 0 9 * * *", func(ctx context.Context) error {
		_, gotDeadline = ctx.Deadline()
		return nil
	}))

	require.NoError(t, s.RunNow(context.Background(), TaskDueSoonReminders))
	assert.True(t, gotDeadline)

	last, ok := s.LastRun(TaskDueSoonReminders)
	require.True(t, ok)
	assert.Equal(t, at, last)

	assert.Error(t, s.RunNow(context.Background(), TaskFineSweep))
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := New(time.UTC, fixedClock{}, 0, logger.Discard())
	err := s.Register(TaskFineSweep, "not a spec", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	l := NewRedisLocker(client)
	key := "circulation:test:" + time.Now().Format(time.RFC3339Nano)

	unlock, err := l.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock(ctx))

	unlock, err = l.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
