// Package scheduler runs background tasks on a fixed interval. A task
// reports Success or Retry; Retry is re-attempted with exponential
// backoff before the next interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Result int

const (
	Success Result = iota
	Retry
)

func (r Result) String() string {
	if r == Success {
		return "success"
	}
	return "retry"
}

// Task is one self-contained invocation. It must build whatever it needs
// from ctx and its own closure; nothing is shared between invocations.
type Task func(ctx context.Context) Result

type Options struct {
	// Timeout bounds a single invocation. Zero means no bound.
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

func DefaultOptions() Options {
	return Options{Timeout: 30 * time.Second, MaxRetries: 3, Backoff: 30 * time.Second}
}

type Runner struct {
	opts  Options
	cron  *cron.Cron
	mu    sync.Mutex
	tasks map[string]Task
	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	ctx   context.Context
}

func New(opts Options) *Runner {
	return &Runner{
		opts:  opts,
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{}))),
		tasks: make(map[string]Task),
		sleep: sleepCtx,
		ctx:   context.Background(),
	}
}

// Register schedules task every interval under name.
func (r *Runner) Register(name string, interval time.Duration, task Task) error {
	if name == "" || task == nil {
		return ErrInvalidTask
	}
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}

	_, err := r.cron.AddFunc("@every "+interval.String(), func() {
		r.runWithRetries(r.runCtx(), name, task)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	r.tasks[name] = task
	return nil
}

func (r *Runner) runCtx() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// Start runs scheduled tasks until ctx ends and waits for running ones
// to return.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.cron.Start()
	logger.L().Info("scheduler started", zap.Int("tasks", len(r.cron.Entries())))

	<-ctx.Done()
	<-r.cron.Stop().Done()
	logger.L().Info("scheduler stopped")
}

// RunOnce performs a single invocation of a registered task without
// retries. It is what OS-level schedulers call.
func (r *Runner) RunOnce(ctx context.Context, name string) (Result, error) {
	r.mu.Lock()
	task, ok := r.tasks[name]
	r.mu.Unlock()
	if !ok {
		return Retry, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return r.invoke(ctx, name, task), nil
}

func (r *Runner) runWithRetries(ctx context.Context, name string, task Task) Result {
	delay := r.opts.Backoff
	for attempt := 0; ; attempt++ {
		res := r.invoke(ctx, name, task)
		if res == Success || attempt >= r.opts.MaxRetries {
			return res
		}
		if err := r.sleep(ctx, delay); err != nil {
			return Retry
		}
		delay *= 2
	}
}

// invoke runs task under the configured timeout. An invocation that
// outlives its deadline is a Retry whatever it returned.
func (r *Runner) invoke(ctx context.Context, name string, task Task) (res Result) {
	ctx = logger.WithRunID(ctx)
	log := logger.FromCtx(ctx).With(zap.String("layer", "scheduler"), zap.String("task", name))

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	timer := metrics.StartTimer()
	defer func() {
		if p := recover(); p != nil {
			log.Error("task panicked", zap.Any("panic", p))
			res = Retry
		}
		metrics.RecordTaskRun(name, res.String(), timer.Duration())
		log.Info("task finished", zap.Stringer("result", res), zap.Duration("took", timer.Duration()))
	}()

	res = task(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn("task exceeded its timeout", zap.Duration("timeout", r.opts.Timeout))
		res = Retry
	}
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
