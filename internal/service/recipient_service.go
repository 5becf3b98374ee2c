// internal/service/recipient_service.go
package service

import (
	"log"

	"github.com/google/uuid"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
)

// RecipientService computes a campaign's audience from its targeting
// criteria against the member directory.
type RecipientService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	MemberRepo    repository.MemberRepositoryInterface
}

// Generate recomputes the full target set from current directory state and
// returns the number of recipients produced. Idempotent: any existing
// pending recipients are deleted first. The lifecycle guard keeps this off
// campaigns that have started sending, so sent/failed history is never
// touched. Zero matches is valid; the campaign just cannot be started.
func (s *RecipientService) Generate(campaignID int) (int, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return 0, err
	}
	if err := Ensure(campaign.Status, OpGenerate); err != nil {
		return 0, err
	}

	deleted, err := s.RecipientRepo.DeletePending(campaignID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("regenerating audience for campaign %d, replaced %d pending recipients", campaignID, deleted)
	}

	members, err := s.MemberRepo.FindByCriteria(campaign.OrganizationID, campaign.Criteria)
	if err != nil {
		return 0, err
	}

	recipients := make([]model.Recipient, 0, len(members))
	for _, m := range members {
		if m.Email == "" {
			continue // no deliverable address
		}
		recipients = append(recipients, model.Recipient{
			CampaignID: campaignID,
			MemberID:   m.ID,
			Name:       m.FullName(),
			Email:      m.Email,
			Token:      uuid.NewString(),
			Status:     model.RecipientPending,
		})
	}

	if err := s.RecipientRepo.BulkInsert(recipients); err != nil {
		return 0, err
	}

	stats, err := s.RecipientRepo.CountByStatus(campaignID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	if err := s.CampaignRepo.SetTotalRecipients(campaignID, total); err != nil {
		return 0, err
	}

	return len(recipients), nil
}
