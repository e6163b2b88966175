package apperrors

import (
	"errors"
	"fmt"
)

// ErrApprovalRequired is returned when a campaign is activated or resumed
// without approved_at being set.
var ErrApprovalRequired = errors.New("campaign is not approved")

// CampaignNotFoundError is a sentinel error for a missing campaign.
type CampaignNotFoundError struct {
	CampaignID int
}

func (e *CampaignNotFoundError) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &CampaignNotFoundError{CampaignID: id}
}

// ValidationError reports a rejected campaign or sequence definition. Sequence
// shape problems must fail at creation time, not inside the executor.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func NewValidation(field, detail string) error {
	return &ValidationError{Field: field, Detail: detail}
}
