package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/segyhp/circulation-engine/pkg/errors"
)

// TaskKind names a recurring task. At most one run per kind is in flight.
type TaskKind string

const (
	TaskFineSweep          TaskKind = "fine-sweep"
	TaskDueSoonReminders   TaskKind = "due-soon-reminders"
	TaskOverdueEscalations TaskKind = "overdue-escalations"
	TaskReservationExpiry  TaskKind = "reservation-expiry"
)

const lockPrefix = "circulation:lock:"

var tracer = otel.Tracer("github.com/segyhp/circulation-engine/internal/scheduler")

// Guard makes task runs single-flight: callers in the same process share the
// running result, and a Locker keeps other processes out.
type Guard struct {
	group  singleflight.Group
	locker Locker
	ttl    time.Duration
	logger *slog.Logger
}

func NewGuard(locker Locker, ttl time.Duration, logger *slog.Logger) *Guard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Guard{locker: locker, ttl: ttl, logger: logger}
}

// Run executes fn under the guard for kind. When another process holds the
// lock it returns a Conflict error without running fn.
func Run[T any](ctx context.Context, g *Guard, kind TaskKind, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err, shared := g.group.Do(string(kind), func() (any, error) {
		return g.run(ctx, kind, func(ctx context.Context) (any, error) { return fn(ctx) })
	})
	if shared {
		g.logger.Debug("joined running task", "kind", kind)
	}

	var zero T
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

func (g *Guard) run(ctx context.Context, kind TaskKind, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, span := tracer.Start(ctx, "task."+string(kind))
	defer span.End()
	span.SetAttributes(attribute.String("task.kind", string(kind)))

	unlock, err := g.locker.TryLock(ctx, lockPrefix+string(kind), g.ttl)
	if errors.Is(err, ErrLocked) {
		span.SetStatus(codes.Error, "already running")
		return nil, apperrors.WrapSweepAlreadyRunning(string(kind))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.WrapCacheError(err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			g.logger.Error("release task lock", "kind", kind, "error", err)
		}
	}()

	start := time.Now()
	out, err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	g.logger.Debug("task finished", "kind", kind, "duration", time.Since(start), "error", err)
	return out, err
}
