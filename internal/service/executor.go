package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cadencehq/outreach-backend/internal/channel"
	"github.com/cadencehq/outreach-backend/internal/logging"
	"github.com/cadencehq/outreach-backend/internal/model"
	"github.com/cadencehq/outreach-backend/internal/queue"
	"github.com/cadencehq/outreach-backend/internal/repository"
	"github.com/cadencehq/outreach-backend/internal/suppression"
)

// Failure reasons recorded on executions. Operators read these off the audit
// trail, so they stay short and stable.
const (
	reasonNoEmail       = "no email"
	reasonNoPhone       = "no phone"
	reasonSendingFailed = "sending failed"
)

// SequenceJob is the payload carried on the dispatch queue: advance this
// lead's sequence at this position.
type SequenceJob struct {
	CampaignID int `json:"campaign_id"`
	LeadID     int `json:"lead_id"`
	Position   int `json:"position"`
}

// Key is the deduplication token. Deterministic per (campaign, lead, position)
// so a rescan of a still-due row collapses onto the in-flight job.
func (j SequenceJob) Key() string {
	return fmt.Sprintf("%d:%d:%d", j.CampaignID, j.LeadID, j.Position)
}

// Dispatcher is the send capability the executor needs; *channel.Dispatcher
// satisfies it.
type Dispatcher interface {
	Send(ctx context.Context, ch channel.Channel, msg channel.Message) error
}

// SequenceExecutor processes one due (campaign, lead, position) job end to
// end: suppression check, send, execution record, progress advance.
type SequenceExecutor struct {
	Steps      repository.SequenceStepRepositoryInterface
	Leads      repository.LeadRepositoryInterface
	Progress   repository.LeadProgressRepositoryInterface
	Executions repository.ExecutionRepositoryInterface
	Gate       suppression.Gate
	Dispatcher Dispatcher

	// Now is the clock used for cadence arithmetic. Overridable in tests.
	Now func() time.Time

	logger zerolog.Logger
}

func NewSequenceExecutor(
	steps repository.SequenceStepRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	progress repository.LeadProgressRepositoryInterface,
	executions repository.ExecutionRepositoryInterface,
	gate suppression.Gate,
	dispatcher Dispatcher,
) *SequenceExecutor {
	return &SequenceExecutor{
		Steps:      steps,
		Leads:      leads,
		Progress:   progress,
		Executions: executions,
		Gate:       gate,
		Dispatcher: dispatcher,
		Now:        time.Now,
		logger:     logging.Component("executor"),
	}
}

// HandleJob adapts Process to the queue's handler signature.
func (e *SequenceExecutor) HandleJob(ctx context.Context, job *queue.Job) error {
	seqJob, ok := job.Payload.(SequenceJob)
	if !ok {
		e.logger.Error().Str("key", job.Key).Msg("unexpected job payload type, discarding")
		return nil
	}
	return e.Process(ctx, seqJob)
}

// Process runs the per-job state machine. A returned error means transient
// infrastructure failure and triggers the queue's retry; nil means the job is
// finished, including the discard and blocked outcomes.
func (e *SequenceExecutor) Process(ctx context.Context, job SequenceJob) error {
	step, err := e.Steps.FindByCampaignAndPosition(ctx, job.CampaignID, job.Position)
	if err != nil {
		return fmt.Errorf("find step: %w", err)
	}
	if step == nil {
		// Step edited or deleted since the job was enqueued. Normal churn.
		e.logger.Debug().Str("key", job.Key()).Msg("step not found, discarding job")
		return nil
	}

	decision, err := e.Gate.CanContact(ctx, job.LeadID, step.Channel)
	if err != nil {
		return fmt.Errorf("suppression check: %w", err)
	}
	if !decision.Allowed {
		// Record the block but leave the cursor where it is: if the gate's
		// state changes later, the same step becomes sendable again.
		e.logger.Info().Str("key", job.Key()).Str("reason", decision.Reason).Msg("send blocked by suppression gate")
		return e.record(ctx, job, step, model.ExecutionBlocked, decision.Reason)
	}

	lead, err := e.Leads.GetByID(ctx, job.LeadID)
	if err != nil {
		return fmt.Errorf("find lead: %w", err)
	}
	if lead == nil {
		e.logger.Debug().Str("key", job.Key()).Msg("lead not found, discarding job")
		return nil
	}

	status, reason := e.attemptSend(ctx, step, lead)

	if err := e.record(ctx, job, step, status, reason); err != nil {
		return err
	}

	return e.advance(ctx, job)
}

// attemptSend renders and dispatches the step. Missing contact fields and
// dispatcher errors are terminal business outcomes, not retryable errors.
func (e *SequenceExecutor) attemptSend(ctx context.Context, step *model.SequenceStep, lead *model.Lead) (status, reason string) {
	vars := leadVars(lead)
	msg := channel.Message{
		Subject: RenderTemplate(step.Subject, vars),
		Body:    RenderTemplate(step.Content, vars),
	}

	switch step.Channel {
	case channel.Email:
		if lead.Email == "" {
			return model.ExecutionFailed, reasonNoEmail
		}
		msg.To = lead.Email
	case channel.SMS, channel.Voice:
		if lead.Phone == "" {
			return model.ExecutionFailed, reasonNoPhone
		}
		msg.To = lead.Phone
	}

	if err := e.Dispatcher.Send(ctx, step.Channel, msg); err != nil {
		e.logger.Warn().Err(err).
			Int("campaign_id", step.CampaignID).
			Int("lead_id", lead.ID).
			Str("channel", string(step.Channel)).
			Msg("channel dispatch failed")
		return model.ExecutionFailed, reasonSendingFailed
	}
	return model.ExecutionCompleted, ""
}

func (e *SequenceExecutor) record(ctx context.Context, job SequenceJob, step *model.SequenceStep, status, reason string) error {
	err := e.Executions.Insert(ctx, &model.Execution{
		CampaignID:     job.CampaignID,
		SequenceStepID: step.ID,
		LeadID:         job.LeadID,
		Status:         status,
		FailedReason:   reason,
	})
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// advance moves the cursor to position+1, or completes the cadence when no
// next step exists. The repository's conditional update makes redelivered
// jobs no-op instead of double-advancing.
func (e *SequenceExecutor) advance(ctx context.Context, job SequenceJob) error {
	now := e.Now()

	next, err := e.Steps.FindByCampaignAndPosition(ctx, job.CampaignID, job.Position+1)
	if err != nil {
		return fmt.Errorf("find next step: %w", err)
	}

	var moved bool
	if next == nil {
		moved, err = e.Progress.Complete(ctx, job.CampaignID, job.LeadID, job.Position, now)
	} else {
		moved, err = e.Progress.Advance(ctx, job.CampaignID, job.LeadID, job.Position, next.Position, now.Add(next.Delay()), now)
	}
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if !moved {
		e.logger.Debug().Str("key", job.Key()).Msg("progress already advanced, skipping")
	}
	return nil
}
