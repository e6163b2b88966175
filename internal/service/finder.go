package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cadencehq/outreach-backend/internal/logging"
	"github.com/cadencehq/outreach-backend/internal/repository"
)

// JobSubmitter is the queue capability the finder needs. Submit reports
// whether the job was accepted; duplicates and a full buffer both return
// false and neither is an error here.
type JobSubmitter interface {
	Submit(key string, payload any) bool
}

// DueWorkFinder scans for leads whose next touch is due and feeds the
// dispatch queue. It never mutates progress rows itself.
type DueWorkFinder struct {
	Progress  repository.LeadProgressRepositoryInterface
	Queue     JobSubmitter
	BatchSize int
	Now       func() time.Time

	logger zerolog.Logger
}

func NewDueWorkFinder(progress repository.LeadProgressRepositoryInterface, q JobSubmitter, batchSize int) *DueWorkFinder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DueWorkFinder{
		Progress:  progress,
		Queue:     q,
		BatchSize: batchSize,
		Now:       time.Now,
		logger:    logging.Component("finder"),
	}
}

// Tick runs one capped scan. A scan error is returned for the scheduler to
// log; the next tick retries naturally. Per-row submit outcomes are isolated:
// one dropped row never blocks the rest of the batch.
func (f *DueWorkFinder) Tick(ctx context.Context) error {
	due, err := f.Progress.FindDue(ctx, f.Now(), f.BatchSize)
	if err != nil {
		return err
	}

	enqueued := 0
	for _, p := range due {
		job := SequenceJob{
			CampaignID: p.CampaignID,
			LeadID:     p.LeadID,
			Position:   p.CurrentSequencePosition,
		}
		if f.Queue.Submit(job.Key(), job) {
			enqueued++
		}
	}

	if len(due) > 0 {
		f.logger.Debug().Int("due", len(due)).Int("enqueued", enqueued).Msg("due scan complete")
	}
	return nil
}
