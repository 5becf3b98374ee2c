package appErrors

import (
	"fmt"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrInvalidTransition reports an operation attempted from a status that
// does not allow it. It is always surfaced to the caller, never retried.
type ErrInvalidTransition struct {
	Current   model.CampaignStatus
	Operation string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s a campaign in status %q", e.Operation, e.Current)
}

func NewInvalidTransition(current model.CampaignStatus, op string) error {
	return &ErrInvalidTransition{Current: current, Operation: op}
}

// ErrEmptyAudience reports a start attempt with zero generated recipients.
type ErrEmptyAudience struct {
	CampaignID int
}

func (e *ErrEmptyAudience) Error() string {
	return fmt.Sprintf("campaign %d has no recipients; generate recipients before starting", e.CampaignID)
}

func NewEmptyAudience(id int) error {
	return &ErrEmptyAudience{CampaignID: id}
}
