package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/panics"

	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

// Runner is satisfied by *usecase.Pipeline.
type Runner interface {
	Run(ctx context.Context, trigger jobrun.Trigger, names ...string) (usecase.PipelineResult, error)
}

// Entry binds a cron spec to the jobs it runs. An empty Spec disables it.
type Entry struct {
	Name string
	Spec string
	Jobs []string
}

type Config struct {
	Location   *time.Location
	RunTimeout time.Duration
	Entries    []Entry
}

// Scheduler fires pipeline runs from cron entries. All entries share one
// worker, so runs never overlap; a tick that finds the worker busy is
// dropped.
type Scheduler struct {
	cron       *cron.Cron
	pool       *ants.Pool
	runner     Runner
	runTimeout time.Duration
	logger     *logging.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool
}

func New(runner Runner, cfg Config, logger *logging.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler runner is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("scheduler")

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}

	pool, err := ants.NewPool(1, ants.WithNonblocking(true), ants.WithPanicHandler(func(v any) {
		logger.Error("scheduler worker panic", "panic", fmt.Sprint(v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create scheduler pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger: logger})),
		pool:       pool,
		runner:     runner,
		runTimeout: runTimeout,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
	}

	for _, entry := range cfg.Entries {
		spec := strings.TrimSpace(entry.Spec)
		if spec == "" {
			logger.Info("schedule entry disabled", "entry", entry.Name)
			continue
		}
		if len(entry.Jobs) == 0 {
			pool.Release()
			cancel()
			return nil, fmt.Errorf("schedule entry %q has no jobs", entry.Name)
		}
		entry := entry
		if _, err := s.cron.AddFunc(spec, func() { s.Trigger(entry) }); err != nil {
			pool.Release()
			cancel()
			return nil, fmt.Errorf("parse schedule %q for %s: %w", spec, entry.Name, err)
		}
		logger.Info("schedule entry registered", "entry", entry.Name, "spec", spec, "jobs", entry.Jobs)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop halts new ticks, cancels an in-flight run and waits for it until ctx
// is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()

	select {
	case <-cronDone.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	deadline := time.Second
	if dl, ok := ctx.Deadline(); ok {
		deadline = time.Until(dl)
	}
	if err := s.pool.ReleaseTimeout(deadline); err != nil {
		return fmt.Errorf("release scheduler pool: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Trigger submits one run of entry. It returns false when a run is already in
// progress.
func (s *Scheduler) Trigger(entry Entry) bool {
	err := s.pool.Submit(func() { s.execute(entry) })
	switch {
	case err == nil:
		return true
	case errors.Is(err, ants.ErrPoolOverload):
		s.logger.Warn("scheduled run skipped: another run in progress", "entry", entry.Name)
	case errors.Is(err, ants.ErrPoolClosed):
		s.logger.Debug("scheduled run dropped: scheduler stopped", "entry", entry.Name)
	default:
		s.logger.Error("scheduled run submit failed", "entry", entry.Name, "error", err)
	}
	return false
}

func (s *Scheduler) execute(entry Entry) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
	defer cancel()

	var catcher panics.Catcher
	catcher.Try(func() {
		result, err := s.runner.Run(ctx, jobrun.TriggerSchedule, entry.Jobs...)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled run failed", "entry", entry.Name, "error", err)
			return
		}
		s.logger.InfoContext(ctx, "scheduled run completed", "entry", entry.Name, "message", result.Message())
	})
	if recovered := catcher.Recovered(); recovered != nil {
		s.logger.Error("scheduled run panicked", "entry", entry.Name, "error", recovered.AsError(), "stack", string(recovered.Stack))
	}
}

type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
