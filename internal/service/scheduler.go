package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cadencehq/outreach-backend/internal/logging"
)

var (
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
	ErrSchedulerNotRunning     = errors.New("scheduler not running")
)

// Task is one periodic unit of scheduler work.
type Task interface {
	Tick(ctx context.Context) error
}

type namedTask struct {
	name string
	task Task
}

// Scheduler drives its registered tasks on a fixed interval. It owns the only
// ticker in the system; the finder and activator are plain injected tasks, so
// tests can tick them directly without any timer.
type Scheduler struct {
	interval time.Duration
	tasks    []namedTask
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		interval: interval,
		logger:   logging.Component("scheduler"),
	}
}

// Register adds a task. Tasks run sequentially within a tick, in registration
// order. Must be called before Start.
func (s *Scheduler) Register(name string, t Task) {
	s.tasks = append(s.tasks, namedTask{name: name, task: t})
}

// Start launches the tick loop. The first pass runs immediately rather than
// waiting one interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.logger.Info().Dur("interval", s.interval).Int("tasks", len(s.tasks)).Msg("scheduler starting")

	s.wg.Add(1)
	go s.runLoop(runCtx)
	return nil
}

// Stop halts the loop and waits for an in-progress tick to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tickAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickAll(ctx)
		}
	}
}

// tickAll runs every task, isolating failures: one task's error is logged and
// the rest still run.
func (s *Scheduler) tickAll(ctx context.Context) {
	for _, nt := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		if err := nt.task.Tick(ctx); err != nil {
			s.logger.Error().Err(err).Str("task", nt.name).Msg("tick failed")
		}
	}
}
