package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/outreach-backend/internal/queue"
)

type sinkRecord struct {
	queueName string
	job       *queue.Job
	err       error
}

type captureSink struct {
	mu      sync.Mutex
	records []sinkRecord
	signal  chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{signal: make(chan struct{}, 16)}
}

func (s *captureSink) RecordFailure(ctx context.Context, queueName string, job *queue.Job, jobErr error) error {
	s.mu.Lock()
	s.records = append(s.records, sinkRecord{queueName: queueName, job: job, err: jobErr})
	s.mu.Unlock()
	s.signal <- struct{}{}
	return nil
}

func (s *captureSink) all() []sinkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sinkRecord, len(s.records))
	copy(out, s.records)
	return out
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestSubmitDeduplicatesInFlightKeys(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	q := queue.New(queue.Config{Workers: 1}, func(ctx context.Context, job *queue.Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	require.True(t, q.Submit("1:7:1", "payload"))
	waitSignal(t, started)

	// Same key while executing: dropped.
	assert.False(t, q.Submit("1:7:1", "payload"))
	assert.True(t, q.InFlight("1:7:1"))

	// A different key is unaffected.
	assert.True(t, q.Submit("1:8:1", "payload"))

	close(release)
	require.Eventually(t, func() bool {
		return q.Submit("1:7:1", "payload")
	}, 2*time.Second, 5*time.Millisecond, "key should be reusable after completion")
}

func TestRetryThenSuccess(t *testing.T) {
	var attempts atomic.Int64
	done := make(chan struct{}, 1)
	sink := newCaptureSink()

	q := queue.New(queue.Config{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond},
		func(ctx context.Context, job *queue.Job) error {
			if attempts.Add(1) == 1 {
				return errors.New("transient")
			}
			done <- struct{}{}
			return nil
		}, sink)
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	require.True(t, q.Submit("job", nil))
	waitSignal(t, done)

	assert.Equal(t, int64(2), attempts.Load())
	assert.Empty(t, sink.all())
}

func TestExhaustedJobIsDeadLettered(t *testing.T) {
	var attempts atomic.Int64
	sink := newCaptureSink()
	jobErr := errors.New("store down")

	q := queue.New(queue.Config{Name: "test_dispatch", Workers: 1, MaxAttempts: 2, RetryBackoff: time.Millisecond},
		func(ctx context.Context, job *queue.Job) error {
			attempts.Add(1)
			return jobErr
		}, sink)
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	require.True(t, q.Submit("1:7:2", map[string]int{"campaign_id": 1}))
	waitSignal(t, sink.signal)

	assert.Equal(t, int64(2), attempts.Load())

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "test_dispatch", records[0].queueName)
	assert.Equal(t, "1:7:2", records[0].job.Key)
	assert.Equal(t, 2, records[0].job.Attempts)
	assert.Equal(t, jobErr, records[0].err)

	// Dead-lettered jobs are not requeued; the key is free again.
	require.Eventually(t, func() bool {
		return !q.InFlight("1:7:2")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	var current, peak, processed atomic.Int64
	done := make(chan struct{}, 8)

	q := queue.New(queue.Config{Workers: 2}, func(ctx context.Context, job *queue.Job) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		processed.Add(1)
		done <- struct{}{}
		return nil
	}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer q.Stop()

	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		require.True(t, q.Submit(k, nil))
	}
	for range keys {
		waitSignal(t, done)
	}

	assert.Equal(t, int64(5), processed.Load())
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestSubmitBeforeStartIsRejected(t *testing.T) {
	q := queue.New(queue.Config{}, func(ctx context.Context, job *queue.Job) error { return nil }, nil)
	assert.False(t, q.Submit("key", nil))
}

func TestFullBufferDropsJob(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	q := queue.New(queue.Config{Workers: 1, Buffer: 1}, func(ctx context.Context, job *queue.Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer func() {
		close(release)
		q.Stop()
	}()

	require.True(t, q.Submit("a", nil))
	waitSignal(t, started) // worker is busy with "a"

	require.True(t, q.Submit("b", nil)) // fills the buffer
	assert.False(t, q.Submit("c", nil)) // dropped, not blocked

	// A dropped job leaves no lease behind.
	assert.False(t, q.InFlight("c"))
}

func TestExpiredLeaseAllowsResubmission(t *testing.T) {
	block := make(chan struct{})
	var invocations atomic.Int64

	q := queue.New(queue.Config{Workers: 2, LeaseDuration: 30 * time.Millisecond},
		func(ctx context.Context, job *queue.Job) error {
			invocations.Add(1)
			<-block
			return nil
		}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer func() {
		close(block)
		q.Stop()
	}()

	require.True(t, q.Submit("stuck", nil))
	assert.False(t, q.Submit("stuck", nil))

	// Once the lease lapses the key is claimable again: at-least-once, not
	// exactly-once. The executor's conditional update absorbs the duplicate.
	require.Eventually(t, func() bool {
		return q.Submit("stuck", nil)
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return invocations.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartStopGuards(t *testing.T) {
	q := queue.New(queue.Config{}, func(ctx context.Context, job *queue.Job) error { return nil }, nil)

	require.NoError(t, q.Start(context.Background()))
	assert.ErrorIs(t, q.Start(context.Background()), queue.ErrAlreadyRunning)
	require.NoError(t, q.Stop())
	assert.ErrorIs(t, q.Stop(), queue.ErrNotRunning)
}
