// Package queue provides the in-process job dispatch queue that carries
// sequence-advance work from the due-work scan to the executor pool.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cadencehq/outreach-backend/internal/logging"
)

var (
	ErrAlreadyRunning = errors.New("queue already running")
	ErrNotRunning     = errors.New("queue not running")
)

// Job is one unit of work. Key is the deduplication token; Payload is whatever
// the handler expects.
type Job struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Payload    any       `json:"payload"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler processes one job. A nil return acks the job; an error triggers the
// retry policy and, on exhaustion, the failure sink.
type Handler func(ctx context.Context, job *Job) error

// Config holds the queue's knobs as plain fields.
type Config struct {
	// Name identifies the queue in logs and dead letters.
	Name string

	// Workers is the size of the worker pool. Default: 5.
	Workers int

	// Buffer is the capacity of the pending-job channel. Default: 256.
	Buffer int

	// MaxAttempts bounds handler invocations per job before dead-lettering.
	// Default: 3.
	MaxAttempts int

	// RetryBackoff is the base delay between attempts; attempt n waits
	// n * RetryBackoff. Default: 500ms.
	RetryBackoff time.Duration

	// LeaseDuration is the visibility timeout on an in-flight key. While the
	// lease holds, submissions with the same key are dropped; once it lapses
	// the key is re-claimable, giving at-least-once semantics if a worker
	// stalls or dies. Default: 2m.
	LeaseDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "dispatch"
	}
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 2 * time.Minute
	}
	return c
}

// DispatchQueue is a deduplicating, at-least-once work queue drained by a
// bounded worker pool.
type DispatchQueue struct {
	cfg     Config
	handler Handler
	sink    FailureSink
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[string]time.Time // key -> lease expiry
	running  bool

	jobs   chan *Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a DispatchQueue. handler must not be nil; sink may be nil, in
// which case exhausted jobs are only logged.
func New(cfg Config, handler Handler, sink FailureSink) *DispatchQueue {
	cfg = cfg.withDefaults()
	if sink == nil {
		sink = &LogFailureSink{Logger: logging.Component("dead-letter")}
	}
	return &DispatchQueue{
		cfg:      cfg,
		handler:  handler,
		sink:     sink,
		logger:   logging.Component("queue").With().Str("queue", cfg.Name).Logger(),
		inflight: make(map[string]time.Time),
		jobs:     make(chan *Job, cfg.Buffer),
	}
}

// Start launches the worker pool.
func (q *DispatchQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrAlreadyRunning
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info().Int("workers", q.cfg.Workers).Msg("queue started")
	return nil
}

// Stop cancels in-flight work and waits for the pool to drain. Jobs still
// buffered are dropped; the due-work scan will find their rows again.
func (q *DispatchQueue) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info().Msg("queue stopped")
	return nil
}

// Submit enqueues a job unless its key is already queued or executing under an
// unexpired lease. It never blocks: a full buffer drops the job and returns
// false, which is safe for the same reason dropped-on-stop jobs are.
func (q *DispatchQueue) Submit(key string, payload any) bool {
	now := time.Now()

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return false
	}
	if exp, ok := q.inflight[key]; ok && now.Before(exp) {
		q.mu.Unlock()
		return false
	}
	q.inflight[key] = now.Add(q.cfg.LeaseDuration)
	q.mu.Unlock()

	job := &Job{
		ID:         uuid.New().String(),
		Key:        key,
		Payload:    payload,
		EnqueuedAt: now,
	}

	select {
	case q.jobs <- job:
		return true
	default:
		q.release(key)
		q.logger.Warn().Str("key", key).Msg("queue buffer full, job dropped")
		return false
	}
}

// InFlight reports whether key currently holds an unexpired lease.
func (q *DispatchQueue) InFlight(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	exp, ok := q.inflight[key]
	return ok && time.Now().Before(exp)
}

func (q *DispatchQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *DispatchQueue) process(job *Job) {
	defer q.release(job.Key)

	for {
		q.renewLease(job.Key)

		jctx, cancel := context.WithTimeout(q.ctx, q.cfg.LeaseDuration)
		job.Attempts++
		err := q.handler(jctx, job)
		cancel()

		if err == nil {
			q.logger.Debug().Str("key", job.Key).Int("attempts", job.Attempts).Msg("job done")
			return
		}

		if job.Attempts >= q.cfg.MaxAttempts {
			q.logger.Error().Err(err).Str("key", job.Key).Int("attempts", job.Attempts).
				Msg("job exhausted retries, dead-lettering")
			if sinkErr := q.sink.RecordFailure(q.ctx, q.cfg.Name, job, err); sinkErr != nil {
				q.logger.Error().Err(sinkErr).Str("key", job.Key).Msg("failure sink write failed")
			}
			return
		}

		q.logger.Warn().Err(err).Str("key", job.Key).
			Int("attempt", job.Attempts).Int("max", q.cfg.MaxAttempts).Msg("job failed, retrying")

		select {
		case <-time.After(time.Duration(job.Attempts) * q.cfg.RetryBackoff):
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *DispatchQueue) renewLease(key string) {
	q.mu.Lock()
	q.inflight[key] = time.Now().Add(q.cfg.LeaseDuration)
	q.mu.Unlock()
}

func (q *DispatchQueue) release(key string) {
	q.mu.Lock()
	delete(q.inflight, key)
	q.mu.Unlock()
}
