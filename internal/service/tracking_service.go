// internal/service/tracking_service.go
package service

import (
	"log"
	"time"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
)

// TrackingService ingests open and click events. Both paths are
// fire-and-forget from the HTTP handler's point of view: the remote client
// is usually an email client fetching images, never the campaign owner, so
// nothing here surfaces an error to it. Unknown tokens are ignored.
type TrackingService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	RecipientRepo  repository.RecipientRepositoryInterface
	EngagementRepo repository.EngagementRepositoryInterface
}

// RecordOpen appends an open event and maintains the counters: the
// recipient's open count with first/last timestamps, the campaign's
// aggregate opens on every event and its unique opens on the first open
// per recipient only.
func (s *TrackingService) RecordOpen(token, userAgent, ipAddress string) {
	rec, err := s.RecipientRepo.GetByToken(token)
	if err != nil {
		log.Println("⚠️ open tracking lookup failed:", err)
		return
	}
	if rec == nil {
		return // unknown token, usually a stale or prefetched pixel
	}

	now := time.Now()
	event := &model.OpenEvent{
		RecipientID: rec.ID,
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
		CreatedAt:   now,
	}
	if err := s.EngagementRepo.InsertOpen(event); err != nil {
		log.Println("⚠️ failed to append open event:", err)
		return
	}

	count, err := s.RecipientRepo.RecordOpen(rec.ID, now)
	if err != nil {
		log.Println("⚠️ failed to bump recipient open count:", err)
		return
	}
	if err := s.CampaignRepo.IncrementOpens(rec.CampaignID, count == 1); err != nil {
		log.Println("⚠️ failed to bump campaign open counts:", err)
	}
}

// RecordClick appends a click event with the destination URL and maintains
// the click counters, unique on first click per recipient.
func (s *TrackingService) RecordClick(token, url, userAgent, ipAddress string) {
	rec, err := s.RecipientRepo.GetByToken(token)
	if err != nil {
		log.Println("⚠️ click tracking lookup failed:", err)
		return
	}
	if rec == nil {
		return
	}

	now := time.Now()
	event := &model.ClickEvent{
		RecipientID: rec.ID,
		URL:         url,
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
		CreatedAt:   now,
	}
	if err := s.EngagementRepo.InsertClick(event); err != nil {
		log.Println("⚠️ failed to append click event:", err)
		return
	}

	count, err := s.RecipientRepo.RecordClick(rec.ID, now)
	if err != nil {
		log.Println("⚠️ failed to bump recipient click count:", err)
		return
	}
	if err := s.CampaignRepo.IncrementClicks(rec.CampaignID, count == 1); err != nil {
		log.Println("⚠️ failed to bump campaign click counts:", err)
	}
}
