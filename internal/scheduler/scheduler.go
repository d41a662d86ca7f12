package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Job is one recurring unit of work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs (with a seconds field) in a fixed time zone.
type Scheduler struct {
	cron    *cron.Cron
	clock   Clock
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	jobs    map[TaskKind]Job
	lastRun map[TaskKind]time.Time
}

func New(loc *time.Location, clock Clock, timeout time.Duration, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		clock:   clock,
		timeout: timeout,
		logger:  logger,
		jobs:    make(map[TaskKind]Job),
		lastRun: make(map[TaskKind]time.Time),
	}
}

// Register schedules job under kind.
func (s *Scheduler) Register(kind TaskKind, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunNow(context.Background(), kind) }); err != nil {
		return fmt.Errorf("schedule %s: %w", kind, err)
	}

	s.mu.Lock()
	s.jobs[kind] = job
	s.mu.Unlock()

	s.logger.Info("task scheduled", "kind", kind, "spec", spec)
	return nil
}

// RunNow runs the job for kind immediately with the job timeout applied.
func (s *Scheduler) RunNow(ctx context.Context, kind TaskKind) error {
	s.mu.Lock()
	job, ok := s.jobs[kind]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s is not registered", kind)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := s.clock.Now()
	s.logger.Info("task started", "kind", kind)

	err := job(ctx)

	s.mu.Lock()
	s.lastRun[kind] = started
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("task failed", "kind", kind, "error", err)
		return err
	}
	s.logger.Info("task completed", "kind", kind, "duration", s.clock.Now().Sub(started))
	return nil
}

// LastRun reports when kind last started.
func (s *Scheduler) LastRun(kind TaskKind) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastRun[kind]
	return t, ok
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
