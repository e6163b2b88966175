package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cadencehq/outreach-backend/internal/apperrors"
	"github.com/cadencehq/outreach-backend/internal/channel"
	"github.com/cadencehq/outreach-backend/internal/model"
	"github.com/cadencehq/outreach-backend/internal/suppression"
)

func progressKey(campaignID, leadID int) string {
	return fmt.Sprintf("%d:%d", campaignID, leadID)
}

// fakeProgressRepo mirrors the conditional-update semantics of the real
// repository so redelivery behavior can be exercised without Postgres.
type fakeProgressRepo struct {
	mu      sync.Mutex
	rows    map[string]*model.LeadProgress
	due     []*model.LeadProgress
	findErr error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[string]*model.LeadProgress)}
}

func (f *fakeProgressRepo) put(p *model.LeadProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.rows[progressKey(p.CampaignID, p.LeadID)] = &cp
}

func (f *fakeProgressRepo) get(campaignID, leadID int) *model.LeadProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[progressKey(campaignID, leadID)]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (f *fakeProgressRepo) Create(ctx context.Context, p *model.LeadProgress) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := progressKey(p.CampaignID, p.LeadID)
	if _, ok := f.rows[k]; ok {
		return false, nil
	}
	cp := *p
	cp.CreatedAt = time.Now()
	f.rows[k] = &cp
	return true, nil
}

func (f *fakeProgressRepo) Get(ctx context.Context, campaignID, leadID int) (*model.LeadProgress, error) {
	return f.get(campaignID, leadID), nil
}

func (f *fakeProgressRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.LeadProgress, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeProgressRepo) casReady(p *model.LeadProgress, fromPosition int) bool {
	return p != nil &&
		p.CurrentSequencePosition == fromPosition &&
		p.CurrentSequenceStatus == model.SequencePending &&
		p.Status == model.ProgressActive
}

func (f *fakeProgressRepo) Advance(ctx context.Context, campaignID, leadID, fromPosition, nextPosition int, nextRunAt, executedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.rows[progressKey(campaignID, leadID)]
	if !f.casReady(p, fromPosition) {
		return false, nil
	}
	p.CurrentSequencePosition = nextPosition
	p.CurrentSequenceStatus = model.SequencePending
	p.NextSequenceRunAt = &nextRunAt
	p.LastSequenceExecutedAt = &executedAt
	return true, nil
}

func (f *fakeProgressRepo) Complete(ctx context.Context, campaignID, leadID, fromPosition int, executedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.rows[progressKey(campaignID, leadID)]
	if !f.casReady(p, fromPosition) {
		return false, nil
	}
	p.CurrentSequenceStatus = model.SequenceCompleted
	p.Status = model.ProgressCompleted
	p.NextSequenceRunAt = nil
	p.LastSequenceExecutedAt = &executedAt
	return true, nil
}

type fakeStepRepo struct {
	mu    sync.Mutex
	steps map[int]map[int]*model.SequenceStep
	err   error
}

func newFakeStepRepo() *fakeStepRepo {
	return &fakeStepRepo{steps: make(map[int]map[int]*model.SequenceStep)}
}

func (f *fakeStepRepo) add(s *model.SequenceStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.steps[s.CampaignID] == nil {
		f.steps[s.CampaignID] = make(map[int]*model.SequenceStep)
	}
	f.steps[s.CampaignID][s.Position] = s
}

func (f *fakeStepRepo) FindByCampaignAndPosition(ctx context.Context, campaignID, position int) (*model.SequenceStep, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps[campaignID][position], nil
}

func (f *fakeStepRepo) ListByCampaign(ctx context.Context, campaignID int) ([]*model.SequenceStep, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.SequenceStep{}
	for _, s := range f.steps[campaignID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

type fakeLeadRepo struct {
	leads map[int]*model.Lead
}

func newFakeLeadRepo(leads ...*model.Lead) *fakeLeadRepo {
	f := &fakeLeadRepo{leads: make(map[int]*model.Lead)}
	for _, l := range leads {
		f.leads[l.ID] = l
	}
	return f
}

func (f *fakeLeadRepo) GetByID(ctx context.Context, id int) (*model.Lead, error) {
	return f.leads[id], nil
}

func (f *fakeLeadRepo) FindQualified(ctx context.Context, teamID, scoreMin, scoreMax int) ([]*model.Lead, error) {
	out := []*model.Lead{}
	for _, l := range f.leads {
		if l.TeamID == teamID && l.Score >= scoreMin && l.Score <= scoreMax {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeExecutionRepo struct {
	mu        sync.Mutex
	rows      []*model.Execution
	insertErr error
}

func (f *fakeExecutionRepo) Insert(ctx context.Context, e *model.Execution) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	cp.ID = len(f.rows) + 1
	cp.CreatedAt = time.Now()
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeExecutionRepo) all() []*model.Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Execution, len(f.rows))
	copy(out, f.rows)
	return out
}

func (f *fakeExecutionRepo) ListByCampaign(ctx context.Context, campaignID, offset, limit int) ([]*model.Execution, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []*model.Execution{}
	for _, e := range f.rows {
		if e.CampaignID == campaignID {
			matched = append(matched, e)
		}
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeExecutionRepo) StatsByCampaign(ctx context.Context, campaignID int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[string]int{
		model.ExecutionCompleted: 0,
		model.ExecutionFailed:    0,
		model.ExecutionBlocked:   0,
		"total":                  0,
	}
	for _, e := range f.rows {
		if e.CampaignID == campaignID {
			stats[e.Status]++
			stats["total"]++
		}
	}
	return stats, nil
}

type fakeCampaignRepo struct {
	mu     sync.Mutex
	rows   map[int]*model.Campaign
	nextID int
}

func newFakeCampaignRepo(campaigns ...*model.Campaign) *fakeCampaignRepo {
	f := &fakeCampaignRepo{rows: make(map[int]*model.Campaign), nextID: 1}
	for _, c := range campaigns {
		if c.ID >= f.nextID {
			f.nextID = c.ID + 1
		}
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCampaignRepo) Create(ctx context.Context, c *model.Campaign, steps []*model.SequenceStep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID
	f.nextID++
	c.CreatedAt = time.Now()
	for i, s := range steps {
		s.ID = c.ID*100 + i + 1
		s.CampaignID = c.ID
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaignRepo) List(ctx context.Context, offset, limit int, status string, teamID int) ([]*model.Campaign, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []*model.Campaign{}
	for _, c := range f.rows {
		if status != "" && c.Status != status {
			continue
		}
		if teamID > 0 && c.TeamID != teamID {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.rows[id]; ok {
		c.Status = status
	}
	return nil
}

func (f *fakeCampaignRepo) Approve(ctx context.Context, id int, approvedBy string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return apperrors.NewCampaignNotFound(id)
	}
	c.ApprovedAt = &at
	c.ApprovedBy = &approvedBy
	return nil
}

func (f *fakeCampaignRepo) Pause(ctx context.Context, id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.rows[id]; ok {
		c.Status = model.CampaignPaused
		c.PausedAt = &at
	}
	return nil
}

func (f *fakeCampaignRepo) Resume(ctx context.Context, id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.rows[id]; ok {
		c.Status = model.CampaignActive
		c.ResumedAt = &at
	}
	return nil
}

func (f *fakeCampaignRepo) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.rows {
		if c.Status == model.CampaignScheduled && !c.StartsAt.After(now) && c.ApprovedAt != nil {
			c.Status = model.CampaignActive
			n++
		}
	}
	return n, nil
}

type fakeGate struct {
	decision suppression.Decision
	err      error
}

func (f *fakeGate) CanContact(ctx context.Context, leadID int, ch channel.Channel) (suppression.Decision, error) {
	return f.decision, f.err
}

type sentMessage struct {
	ch  channel.Channel
	msg channel.Message
}

type fakeDispatcher struct {
	mu    sync.Mutex
	sends []sentMessage
	err   error
}

func (f *fakeDispatcher) Send(ctx context.Context, ch channel.Channel, msg channel.Message) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMessage{ch: ch, msg: msg})
	return nil
}

func (f *fakeDispatcher) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sends))
	copy(out, f.sends)
	return out
}

type submission struct {
	key     string
	payload any
}

type fakeSubmitter struct {
	mu     sync.Mutex
	subs   []submission
	accept func(key string) bool
}

func (f *fakeSubmitter) Submit(key string, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accept != nil && !f.accept(key) {
		return false
	}
	f.subs = append(f.subs, submission{key: key, payload: payload})
	return true
}

func (f *fakeSubmitter) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]submission, len(f.subs))
	copy(out, f.subs)
	return out
}
