package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cadencehq/outreach-backend/internal/apperrors"
	"github.com/cadencehq/outreach-backend/internal/channel"
	"github.com/cadencehq/outreach-backend/internal/model"
	"github.com/cadencehq/outreach-backend/internal/repository"
)

// CampaignService is the CRUD and lifecycle layer around campaigns and their
// sequences. The executor owns LeadProgress and Execution writes after
// enrollment; this service owns everything before.
type CampaignService struct {
	Campaigns  repository.CampaignRepositoryInterface
	Steps      repository.SequenceStepRepositoryInterface
	Leads      repository.LeadRepositoryInterface
	Progress   repository.LeadProgressRepositoryInterface
	Executions repository.ExecutionRepositoryInterface

	Now func() time.Time
}

func NewCampaignService(
	campaigns repository.CampaignRepositoryInterface,
	steps repository.SequenceStepRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	progress repository.LeadProgressRepositoryInterface,
	executions repository.ExecutionRepositoryInterface,
) *CampaignService {
	return &CampaignService{
		Campaigns:  campaigns,
		Steps:      steps,
		Leads:      leads,
		Progress:   progress,
		Executions: executions,
		Now:        time.Now,
	}
}

type StepInput struct {
	Position   int    `json:"position"`
	Channel    string `json:"channel"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	DelayDays  int    `json:"delay_days"`
	DelayHours int    `json:"delay_hours"`
}

type CreateCampaignInput struct {
	TeamID   int        `json:"team_id"`
	Name     string     `json:"name"`
	ScoreMin int        `json:"score_min"`
	ScoreMax int        `json:"score_max"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	Steps    []StepInput `json:"steps"`
}

// CreateCampaign validates and persists a campaign with its sequence. The
// sequence-shape checks happen here so the executor can assume a dense
// 1-based position ladder.
func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, []*model.SequenceStep, error) {
	if in.Name == "" {
		return nil, nil, apperrors.NewValidation("name", "must not be empty")
	}
	if in.ScoreMin > in.ScoreMax {
		return nil, nil, apperrors.NewValidation("score range", "score_min must not exceed score_max")
	}
	steps, err := validateSteps(in.Steps)
	if err != nil {
		return nil, nil, err
	}

	startsAt := s.Now()
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	campaign := &model.Campaign{
		TeamID:   in.TeamID,
		Name:     in.Name,
		Status:   model.CampaignScheduled,
		ScoreMin: in.ScoreMin,
		ScoreMax: in.ScoreMax,
		StartsAt: startsAt,
	}

	if err := s.Campaigns.Create(ctx, campaign, steps); err != nil {
		return nil, nil, err
	}
	return campaign, steps, nil
}

func validateSteps(inputs []StepInput) ([]*model.SequenceStep, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidation("steps", "a campaign needs at least one sequence step")
	}

	sorted := make([]StepInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	steps := make([]*model.SequenceStep, 0, len(sorted))
	for i, in := range sorted {
		if in.Position != i+1 {
			return nil, apperrors.NewValidation("steps",
				fmt.Sprintf("positions must be 1..%d without gaps, got %d at index %d", len(sorted), in.Position, i))
		}
		ch, err := channel.Parse(in.Channel)
		if err != nil {
			return nil, apperrors.NewValidation("steps", err.Error())
		}
		if in.Content == "" {
			return nil, apperrors.NewValidation("steps", fmt.Sprintf("step %d has empty content", in.Position))
		}
		if in.DelayDays < 0 || in.DelayHours < 0 {
			return nil, apperrors.NewValidation("steps", fmt.Sprintf("step %d has a negative delay", in.Position))
		}
		steps = append(steps, &model.SequenceStep{
			Position:   in.Position,
			Channel:    ch,
			Subject:    in.Subject,
			Content:    in.Content,
			DelayDays:  in.DelayDays,
			DelayHours: in.DelayHours,
		})
	}
	return steps, nil
}

// ApproveCampaign sets the approval stamp required before activation.
func (s *CampaignService) ApproveCampaign(ctx context.Context, id int, approvedBy string) (*model.Campaign, error) {
	if approvedBy == "" {
		return nil, apperrors.NewValidation("approved_by", "must not be empty")
	}
	if err := s.Campaigns.Approve(ctx, id, approvedBy, s.Now()); err != nil {
		return nil, err
	}
	return s.Campaigns.GetByID(ctx, id)
}

// PauseCampaign suspends an active campaign. Jobs already in flight finish;
// the finder simply stops producing due rows for it.
func (s *CampaignService) PauseCampaign(ctx context.Context, id int) (*model.Campaign, error) {
	campaign, err := s.Campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignActive {
		return nil, apperrors.NewValidation("status", fmt.Sprintf("cannot pause a %s campaign", campaign.Status))
	}
	if err := s.Campaigns.Pause(ctx, id, s.Now()); err != nil {
		return nil, err
	}
	return s.Campaigns.GetByID(ctx, id)
}

// ResumeCampaign reactivates a paused campaign, subject to the same approval
// invariant as first activation.
func (s *CampaignService) ResumeCampaign(ctx context.Context, id int) (*model.Campaign, error) {
	campaign, err := s.Campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignPaused {
		return nil, apperrors.NewValidation("status", fmt.Sprintf("cannot resume a %s campaign", campaign.Status))
	}
	if !campaign.Approved() {
		return nil, apperrors.ErrApprovalRequired
	}
	if err := s.Campaigns.Resume(ctx, id, s.Now()); err != nil {
		return nil, err
	}
	return s.Campaigns.GetByID(ctx, id)
}

type EnrollmentResult struct {
	CampaignID int   `json:"campaign_id"`
	Enrolled   int   `json:"enrolled"`
	Skipped    int   `json:"skipped"`
	LeadIDs    []int `json:"lead_ids"`
}

// EnrollLeads creates progress rows at position 1 for qualifying leads. With
// no explicit IDs it enrolls every team lead inside the score range; explicit
// IDs are still score-filtered. Idempotent per (campaign, lead).
func (s *CampaignService) EnrollLeads(ctx context.Context, campaignID int, leadIDs []int) (*EnrollmentResult, error) {
	campaign, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	first, err := s.Steps.FindByCampaignAndPosition(ctx, campaignID, 1)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, apperrors.NewValidation("steps", "campaign has no step at position 1")
	}

	var leads []*model.Lead
	if len(leadIDs) == 0 {
		leads, err = s.Leads.FindQualified(ctx, campaign.TeamID, campaign.ScoreMin, campaign.ScoreMax)
		if err != nil {
			return nil, err
		}
	} else {
		for _, id := range leadIDs {
			lead, err := s.Leads.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if lead == nil || lead.Score < campaign.ScoreMin || lead.Score > campaign.ScoreMax {
				continue
			}
			leads = append(leads, lead)
		}
	}

	nextRun := s.Now().Add(first.Delay())
	result := &EnrollmentResult{CampaignID: campaignID, LeadIDs: []int{}}
	for _, lead := range leads {
		created, err := s.Progress.Create(ctx, &model.LeadProgress{
			CampaignID:              campaignID,
			LeadID:                  lead.ID,
			CurrentSequencePosition: 1,
			CurrentSequenceStatus:   model.SequencePending,
			NextSequenceRunAt:       &nextRun,
			Status:                  model.ProgressActive,
		})
		if err != nil {
			return nil, err
		}
		if created {
			result.Enrolled++
			result.LeadIDs = append(result.LeadIDs, lead.ID)
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

type CampaignDetails struct {
	*model.Campaign
	Steps []*model.SequenceStep `json:"steps"`
	Stats map[string]int        `json:"stats"`
}

// GetCampaignDetails returns the campaign with its steps and per-status
// execution counts.
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id int) (*CampaignDetails, error) {
	campaign, err := s.Campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := s.Steps.ListByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.Executions.StatsByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Steps: steps, Stats: stats}, nil
}

// ListCampaigns fetches campaigns with pagination.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string, teamID int) ([]*model.Campaign, map[string]int, error) {
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	campaigns, total, err := s.Campaigns.List(ctx, offset, pageSize, status, teamID)
	if err != nil {
		return nil, nil, err
	}
	return campaigns, paginationMap(page, pageSize, total), nil
}

// ListExecutions pages through a campaign's audit trail.
func (s *CampaignService) ListExecutions(ctx context.Context, campaignID, page, pageSize int) ([]*model.Execution, map[string]int, error) {
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	executions, total, err := s.Executions.ListByCampaign(ctx, campaignID, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}
	return executions, paginationMap(page, pageSize, total), nil
}

// RenderPreview renders one step's subject and content for a lead.
func (s *CampaignService) RenderPreview(ctx context.Context, campaignID, position, leadID int) (subject, body string, err error) {
	step, err := s.Steps.FindByCampaignAndPosition(ctx, campaignID, position)
	if err != nil {
		return "", "", err
	}
	if step == nil {
		return "", "", apperrors.NewValidation("position", fmt.Sprintf("no step at position %d", position))
	}
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		return "", "", err
	}
	if lead == nil {
		return "", "", apperrors.NewValidation("lead_id", "lead not found")
	}

	vars := leadVars(lead)
	return RenderTemplate(step.Subject, vars), RenderTemplate(step.Content, vars), nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func paginationMap(page, pageSize, total int) map[string]int {
	return map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}
