// internal/service/delivery_service.go
package service

import (
	"context"
	"log"
	"time"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/mailer"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/ratelimit"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/template"
)

// DeliveryService drains pending recipients in bounded batches. There is
// no internal scheduler: every batch is driven by an external caller, an
// operator action or the queue worker, invoked again until completion.
type DeliveryService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	OrgRepo       repository.OrganizationRepositoryInterface
	Mailer        mailer.Mailer
	Limiter       ratelimit.Limiter

	// MailerTimeout bounds each Send call so one slow recipient cannot
	// stall the whole batch.
	MailerTimeout time.Duration

	// DefaultBatchSize applies when neither the caller nor the campaign
	// sets a batch size.
	DefaultBatchSize int
}

type BatchResult struct {
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Remaining int  `json:"remaining"`
	Completed bool `json:"completed"`
}

// SendBatch processes up to batchSize pending recipients for the campaign.
// Recipients are claimed with a conditional pending-to-sending update, so
// overlapping batch calls never double-send, and a recipient already sent
// is never selected again. Individual delivery failures are recorded on
// the recipient and aggregated on the campaign; they never abort the
// batch. When no pending recipients remain afterwards the campaign
// completes automatically.
func (s *DeliveryService) SendBatch(ctx context.Context, campaignID, batchSize int) (*BatchResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if err := Ensure(campaign.Status, OpSendBatch); err != nil {
		return nil, err
	}

	if batchSize <= 0 || (campaign.BatchSize > 0 && batchSize > campaign.BatchSize) {
		batchSize = campaign.BatchSize
	}
	if batchSize <= 0 {
		batchSize = s.DefaultBatchSize
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	org, err := s.OrgRepo.GetByID(campaign.OrganizationID)
	if err != nil {
		return nil, err
	}

	// Consume rate budget before claiming rows; what the limiter denies
	// simply stays pending for the next invocation.
	allowed := 0
	for allowed < batchSize && s.Limiter.Allow(ctx, campaignID, campaign.RatePerSecond) {
		allowed++
	}

	result := &BatchResult{}
	if allowed > 0 {
		claimed, err := s.RecipientRepo.ClaimPending(campaignID, allowed)
		if err != nil {
			return nil, err
		}
		for i := range claimed {
			if s.deliver(ctx, campaign, org, &claimed[i]) {
				result.Sent++
			} else {
				result.Failed++
			}
		}
	}

	remaining, err := s.RecipientRepo.CountPending(campaignID)
	if err != nil {
		return nil, err
	}
	result.Remaining = remaining

	if remaining == 0 {
		// Re-read the status: a concurrent pause or cancel between our
		// guard check and now must win over auto-completion.
		fresh, err := s.CampaignRepo.GetByID(campaignID)
		if err != nil {
			return nil, err
		}
		if Allowed(fresh.Status, OpComplete) {
			if err := s.CampaignRepo.MarkCompleted(campaignID); err != nil {
				return nil, err
			}
			result.Completed = true
		}
	}

	return result, nil
}

// deliver renders and sends one message, folding the outcome into the
// recipient row and the campaign counters. Returns true on success.
func (s *DeliveryService) deliver(ctx context.Context, campaign *model.Campaign, org *model.Organization, rec *model.Recipient) bool {
	rctx := renderContext(org, campaign, rec, time.Now())
	msg := mailer.Message{
		ToName:    rec.Name,
		ToAddress: rec.Email,
		Subject:   template.Render(campaign.Subject, rctx),
		Body:      template.Render(campaign.Body, rctx),
	}
	if org != nil {
		msg.FromName = org.FromName
		msg.FromAddr = org.FromAddress
	}

	timeout := s.MailerTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	err := s.Mailer.Send(sendCtx, msg)
	cancel()

	if err != nil {
		log.Printf("⚠️ failed to send to recipient %d (%s): %v", rec.ID, rec.Email, err)
		if uerr := s.RecipientRepo.MarkFailed(rec.ID, err.Error()); uerr != nil {
			log.Println("⚠️ failed to record delivery failure:", uerr)
		}
		if uerr := s.CampaignRepo.IncrementFailed(campaign.ID); uerr != nil {
			log.Println("⚠️ failed to bump failed count:", uerr)
		}
		return false
	}

	if uerr := s.RecipientRepo.MarkSent(rec.ID); uerr != nil {
		log.Println("⚠️ failed to mark recipient sent:", uerr)
	}
	if uerr := s.CampaignRepo.IncrementSent(campaign.ID); uerr != nil {
		log.Println("⚠️ failed to bump sent count:", uerr)
	}
	return true
}
