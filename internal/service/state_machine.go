// internal/service/state_machine.go
package service

import (
	appErrors "github.com/AllPhaseMedia/unionsoftware-sub001/internal/errors"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

// CampaignOp names an operation checked against the campaign lifecycle.
type CampaignOp string

const (
	OpSchedule  CampaignOp = "schedule"
	OpStart     CampaignOp = "start"
	OpPause     CampaignOp = "pause"
	OpResume    CampaignOp = "resume"
	OpCancel    CampaignOp = "cancel"
	OpComplete  CampaignOp = "complete"
	OpEdit      CampaignOp = "edit"
	OpDelete    CampaignOp = "delete"
	OpSendBatch CampaignOp = "send batch to"
	OpGenerate  CampaignOp = "generate recipients for"
)

// allowedFrom is the whole lifecycle in one table. Every guard in the
// system goes through Ensure so "what is allowed in which state" is not
// re-derived ad hoc in handlers.
var allowedFrom = map[CampaignOp][]model.CampaignStatus{
	OpSchedule:  {model.StatusDraft},
	OpStart:     {model.StatusDraft, model.StatusScheduled},
	OpPause:     {model.StatusSending},
	OpResume:    {model.StatusPaused},
	OpCancel:    {model.StatusSending, model.StatusPaused},
	OpComplete:  {model.StatusSending},
	OpEdit:      {model.StatusDraft},
	OpSendBatch: {model.StatusSending},
	OpGenerate:  {model.StatusDraft, model.StatusScheduled},
	OpDelete: {
		model.StatusDraft, model.StatusScheduled, model.StatusPaused,
		model.StatusCompleted, model.StatusCancelled,
	},
}

// Allowed reports whether op is legal from the given status.
func Allowed(status model.CampaignStatus, op CampaignOp) bool {
	for _, s := range allowedFrom[op] {
		if s == status {
			return true
		}
	}
	return false
}

// Ensure returns ErrInvalidTransition when op is not legal from status.
// Disallowed operations always fail loudly, never silently no-op.
func Ensure(status model.CampaignStatus, op CampaignOp) error {
	if !Allowed(status, op) {
		return appErrors.NewInvalidTransition(status, string(op))
	}
	return nil
}
