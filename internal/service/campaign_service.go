// internal/service/campaign_service.go
package service

import (
	"fmt"
	"time"

	appErrors "github.com/AllPhaseMedia/unionsoftware-sub001/internal/errors"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/template"
)

type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	OrgRepo       repository.OrganizationRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface
}

// CampaignInput carries the editable fields of a campaign.
type CampaignInput struct {
	OrganizationID int
	Name           string
	Subject        string
	Body           string
	TemplateID     *int
	Criteria       model.TargetingCriteria
	BatchSize      int
	RatePerSecond  int
}

type CampaignDetails struct {
	Campaign model.Campaign `json:"campaign"`
	Stats    map[string]int `json:"stats"`
}

type PreviewResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CreateCampaign makes a new draft. A referenced message template fills in
// a blank subject or body.
func (s *CampaignService) CreateCampaign(in CampaignInput) (*model.Campaign, error) {
	c := &model.Campaign{
		OrganizationID: in.OrganizationID,
		Name:           in.Name,
		Subject:        in.Subject,
		Body:           in.Body,
		TemplateID:     in.TemplateID,
		Criteria:       in.Criteria,
		BatchSize:      in.BatchSize,
		RatePerSecond:  in.RatePerSecond,
		Status:         model.StatusDraft,
	}
	if err := s.applyTemplate(c); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCampaign edits a draft. Any other status rejects the edit.
func (s *CampaignService) UpdateCampaign(id int, in CampaignInput) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := Ensure(c.Status, OpEdit); err != nil {
		return nil, err
	}

	c.Name = in.Name
	c.Subject = in.Subject
	c.Body = in.Body
	c.TemplateID = in.TemplateID
	c.Criteria = in.Criteria
	if in.BatchSize > 0 {
		c.BatchSize = in.BatchSize
	}
	c.RatePerSecond = in.RatePerSecond
	if err := s.applyTemplate(c); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Update(c); err != nil {
		return nil, err
	}
	return s.CampaignRepo.GetByID(id)
}

func (s *CampaignService) applyTemplate(c *model.Campaign) error {
	if c.TemplateID == nil || (c.Subject != "" && c.Body != "") {
		return nil
	}
	tpl, err := s.TemplateRepo.GetByID(*c.TemplateID)
	if err != nil {
		return err
	}
	if tpl == nil {
		return fmt.Errorf("message template %d not found", *c.TemplateID)
	}
	if c.Subject == "" {
		c.Subject = tpl.Subject
	}
	if c.Body == "" {
		c.Body = tpl.Body
	}
	return nil
}

// DeleteCampaign removes a campaign in any status except sending: deleting
// mid-send would orphan an in-progress batch.
func (s *CampaignService) DeleteCampaign(id int) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := Ensure(c.Status, OpDelete); err != nil {
		return err
	}
	return s.CampaignRepo.Delete(id)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaignDetailsWithStats returns the campaign plus recipient counts
// grouped by delivery status.
func (s *CampaignService) GetCampaignDetailsWithStats(id int) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	stats, err := s.RecipientRepo.CountByStatus(id)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	stats["total"] = total
	return &CampaignDetails{Campaign: *c, Stats: stats}, nil
}

// ====================== Lifecycle ======================

func (s *CampaignService) Schedule(id int, at time.Time) (*model.Campaign, error) {
	return s.transition(id, OpSchedule, func(c *model.Campaign) error {
		return s.CampaignRepo.MarkScheduled(id, at)
	})
}

// Start moves a campaign into sending. A campaign with no generated
// recipients cannot start.
func (s *CampaignService) Start(id int) (*model.Campaign, error) {
	return s.transition(id, OpStart, func(c *model.Campaign) error {
		if c.TotalRecipients <= 0 {
			return appErrors.NewEmptyAudience(id)
		}
		return s.CampaignRepo.MarkStarted(id)
	})
}

func (s *CampaignService) Pause(id int) (*model.Campaign, error) {
	return s.transition(id, OpPause, func(c *model.Campaign) error {
		return s.CampaignRepo.MarkPaused(id)
	})
}

func (s *CampaignService) Resume(id int) (*model.Campaign, error) {
	return s.transition(id, OpResume, func(c *model.Campaign) error {
		return s.CampaignRepo.MarkResumed(id)
	})
}

// Cancel stops a campaign for good. Messages already sent or in flight are
// not recalled; recipients still pending are marked skipped so the status
// ledger keeps accounting for the whole audience.
func (s *CampaignService) Cancel(id int) (*model.Campaign, error) {
	return s.transition(id, OpCancel, func(c *model.Campaign) error {
		if err := s.CampaignRepo.MarkCancelled(id); err != nil {
			return err
		}
		_, err := s.RecipientRepo.SkipPending(id)
		return err
	})
}

// transition runs one guarded state change and returns the fresh record.
func (s *CampaignService) transition(id int, op CampaignOp, apply func(c *model.Campaign) error) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := Ensure(c.Status, op); err != nil {
		return nil, err
	}
	if err := apply(c); err != nil {
		return nil, err
	}
	return s.CampaignRepo.GetByID(id)
}

// ====================== Preview ======================

// Preview renders subject and body for the given recipient, or the
// campaign's first recipient when none is supplied. Nothing is mutated.
// With no recipients generated yet the organization and date still render
// and member tokens stay visible, which is what an author previewing an
// untargeted draft wants to see.
func (s *CampaignService) Preview(campaignID int, recipientID *int) (*PreviewResult, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	var rec *model.Recipient
	if recipientID != nil {
		rec, err = s.RecipientRepo.GetByID(*recipientID)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.CampaignID != campaignID {
			return nil, fmt.Errorf("recipient %d not found in campaign %d", *recipientID, campaignID)
		}
	} else {
		rec, err = s.RecipientRepo.FirstForCampaign(campaignID)
		if err != nil {
			return nil, err
		}
	}

	org, err := s.OrgRepo.GetByID(c.OrganizationID)
	if err != nil {
		return nil, err
	}

	ctx := renderContext(org, c, rec, time.Now())
	return &PreviewResult{
		Subject: template.Render(c.Subject, ctx),
		Body:    template.Render(c.Body, ctx),
	}, nil
}
