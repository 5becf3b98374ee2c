package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/AllPhaseMedia/unionsoftware-sub001/internal/errors"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/mailer"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

// --- In-memory campaign repo ---

type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 1}
}

func (r *memCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	stored := *c
	r.campaigns[c.ID] = &stored
	return nil
}

func (r *memCampaignRepo) Update(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.campaigns[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	existing.Name = c.Name
	existing.Subject = c.Subject
	existing.Body = c.Body
	existing.TemplateID = c.TemplateID
	existing.Criteria = c.Criteria
	existing.BatchSize = c.BatchSize
	existing.RatePerSecond = c.RatePerSecond
	return nil
}

func (r *memCampaignRepo) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

func (r *memCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copy := *c
	return &copy, nil
}

func (r *memCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		if status != "" && string(c.Status) != status {
			continue
		}
		copy := *c
		all = append(all, &copy)
	}
	total := len(all)
	if offset > len(all) {
		return []*model.Campaign{}, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *memCampaignRepo) mutate(id int, fn func(c *model.Campaign)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	fn(c)
	return nil
}

func (r *memCampaignRepo) MarkScheduled(id int, at time.Time) error {
	return r.mutate(id, func(c *model.Campaign) {
		c.Status = model.StatusScheduled
		c.ScheduledAt = &at
	})
}

func (r *memCampaignRepo) MarkStarted(id int) error {
	return r.mutate(id, func(c *model.Campaign) {
		now := time.Now()
		c.Status = model.StatusSending
		c.StartedAt = &now
	})
}

func (r *memCampaignRepo) MarkPaused(id int) error {
	return r.mutate(id, func(c *model.Campaign) {
		now := time.Now()
		c.Status = model.StatusPaused
		c.PausedAt = &now
	})
}

func (r *memCampaignRepo) MarkResumed(id int) error {
	return r.mutate(id, func(c *model.Campaign) {
		c.Status = model.StatusSending
		c.PausedAt = nil
	})
}

func (r *memCampaignRepo) MarkCancelled(id int) error {
	return r.mutate(id, func(c *model.Campaign) {
		c.Status = model.StatusCancelled
	})
}

func (r *memCampaignRepo) MarkCompleted(id int) error {
	return r.mutate(id, func(c *model.Campaign) {
		now := time.Now()
		c.Status = model.StatusCompleted
		c.CompletedAt = &now
	})
}

func (r *memCampaignRepo) SetTotalRecipients(id, total int) error {
	return r.mutate(id, func(c *model.Campaign) { c.TotalRecipients = total })
}

func (r *memCampaignRepo) IncrementSent(id int) error {
	return r.mutate(id, func(c *model.Campaign) { c.SentCount++ })
}

func (r *memCampaignRepo) IncrementFailed(id int) error {
	return r.mutate(id, func(c *model.Campaign) { c.FailedCount++ })
}

func (r *memCampaignRepo) IncrementOpens(id int, unique bool) error {
	return r.mutate(id, func(c *model.Campaign) {
		c.OpenCount++
		if unique {
			c.UniqueOpenCount++
		}
	})
}

func (r *memCampaignRepo) IncrementClicks(id int, unique bool) error {
	return r.mutate(id, func(c *model.Campaign) {
		c.ClickCount++
		if unique {
			c.UniqueClickCount++
		}
	})
}

// --- In-memory recipient repo ---

type memRecipientRepo struct {
	mu         sync.Mutex
	recipients []*model.Recipient
	nextID     int
}

func newMemRecipientRepo() *memRecipientRepo {
	return &memRecipientRepo{nextID: 1}
}

func (r *memRecipientRepo) BulkInsert(recipients []model.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := range recipients {
		rec := recipients[i]
		rec.ID = r.nextID
		r.nextID++
		rec.CreatedAt = now
		rec.UpdatedAt = now
		r.recipients = append(r.recipients, &rec)
	}
	return nil
}

func (r *memRecipientRepo) DeletePending(campaignID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.recipients[:0]
	deleted := 0
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.recipients = kept
	return deleted, nil
}

func (r *memRecipientRepo) GetByID(id int) (*model.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.ID == id {
			copy := *rec
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *memRecipientRepo) GetByToken(token string) (*model.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.Token == token {
			copy := *rec
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *memRecipientRepo) FirstForCampaign(campaignID int) (*model.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID {
			copy := *rec
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *memRecipientRepo) ListByCampaign(campaignID, offset, limit int, status string) ([]model.Recipient, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []model.Recipient{}
	for _, rec := range r.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		if status != "" && string(rec.Status) != status {
			continue
		}
		matched = append(matched, *rec)
	}
	total := len(matched)
	if offset > len(matched) {
		return []model.Recipient{}, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *memRecipientRepo) ClaimPending(campaignID, limit int) ([]model.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claimed := []model.Recipient{}
	for _, rec := range r.recipients {
		if len(claimed) >= limit {
			break
		}
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending {
			rec.Status = model.RecipientSending
			claimed = append(claimed, *rec)
		}
	}
	return claimed, nil
}

func (r *memRecipientRepo) MarkSent(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.ID == id {
			now := time.Now()
			rec.Status = model.RecipientSent
			rec.SentAt = &now
			rec.LastError = ""
			return nil
		}
	}
	return fmt.Errorf("recipient %d not found", id)
}

func (r *memRecipientRepo) MarkFailed(id int, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.ID == id {
			rec.Status = model.RecipientFailed
			rec.LastError = lastError
			rec.RetryCount++
			return nil
		}
	}
	return fmt.Errorf("recipient %d not found", id)
}

func (r *memRecipientRepo) SkipPending(campaignID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending {
			rec.Status = model.RecipientSkipped
			n++
		}
	}
	return n, nil
}

func (r *memRecipientRepo) CountPending(campaignID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending {
			n++
		}
	}
	return n, nil
}

func (r *memRecipientRepo) CountByStatus(campaignID int) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := map[string]int{"pending": 0, "sending": 0, "sent": 0, "failed": 0, "skipped": 0}
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID {
			stats[string(rec.Status)]++
		}
	}
	return stats, nil
}

func (r *memRecipientRepo) RecordOpen(id int, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.ID == id {
			rec.OpenCount++
			if rec.FirstOpenedAt == nil {
				stamp := at
				rec.FirstOpenedAt = &stamp
			}
			stamp := at
			rec.LastOpenedAt = &stamp
			return rec.OpenCount, nil
		}
	}
	return 0, fmt.Errorf("recipient %d not found", id)
}

func (r *memRecipientRepo) RecordClick(id int, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.ID == id {
			rec.ClickCount++
			return rec.ClickCount, nil
		}
	}
	return 0, fmt.Errorf("recipient %d not found", id)
}

// --- In-memory member directory ---

type memMemberRepo struct {
	members []model.Member
}

func (r *memMemberRepo) GetByID(id int) (*model.Member, error) {
	for _, m := range r.members {
		if m.ID == id {
			copy := m
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *memMemberRepo) FindByCriteria(orgID int, tc model.TargetingCriteria) ([]model.Member, error) {
	matched := []model.Member{}
	for _, m := range r.members {
		if m.OrganizationID != orgID || m.Email == "" {
			continue
		}
		if len(tc.DepartmentIDs) > 0 && !containsInt(tc.DepartmentIDs, m.DepartmentID) {
			continue
		}
		if len(tc.MembershipStatuses) > 0 && !containsStr(tc.MembershipStatuses, m.MembershipStatus) {
			continue
		}
		if len(tc.EmploymentTypes) > 0 && !containsStr(tc.EmploymentTypes, m.EmploymentType) {
			continue
		}
		matched = append(matched, m)
	}
	return matched, nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// --- Org / template / engagement stubs ---

type memOrgRepo struct {
	orgs map[int]*model.Organization
}

func (r *memOrgRepo) GetByID(id int) (*model.Organization, error) {
	if r == nil || r.orgs == nil {
		return nil, nil
	}
	o, ok := r.orgs[id]
	if !ok {
		return nil, nil
	}
	copy := *o
	return &copy, nil
}

type memTemplateRepo struct {
	templates map[int]*model.MessageTemplate
	nextID    int
}

func (r *memTemplateRepo) Create(t *model.MessageTemplate) error {
	if r.templates == nil {
		r.templates = map[int]*model.MessageTemplate{}
	}
	if r.nextID == 0 {
		r.nextID = 1
	}
	t.ID = r.nextID
	r.nextID++
	stored := *t
	r.templates[t.ID] = &stored
	return nil
}

func (r *memTemplateRepo) GetByID(id int) (*model.MessageTemplate, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	copy := *t
	return &copy, nil
}

func (r *memTemplateRepo) ListByOrganization(orgID int) ([]model.MessageTemplate, error) {
	out := []model.MessageTemplate{}
	for _, t := range r.templates {
		if t.OrganizationID == orgID {
			out = append(out, *t)
		}
	}
	return out, nil
}

type memEngagementRepo struct {
	mu     sync.Mutex
	opens  []model.OpenEvent
	clicks []model.ClickEvent
}

func (r *memEngagementRepo) InsertOpen(e *model.OpenEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = len(r.opens) + 1
	r.opens = append(r.opens, *e)
	return nil
}

func (r *memEngagementRepo) InsertClick(e *model.ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = len(r.clicks) + 1
	r.clicks = append(r.clicks, *e)
	return nil
}

func (r *memEngagementRepo) ListOpens(recipientID int) ([]model.OpenEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.OpenEvent{}
	for _, e := range r.opens {
		if e.RecipientID == recipientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEngagementRepo) ListClicks(recipientID int) ([]model.ClickEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ClickEvent{}
	for _, e := range r.clicks {
		if e.RecipientID == recipientID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Mailer and limiter fakes ---

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	failFor map[string]string // address -> error text
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reason, ok := m.failFor[msg.ToAddress]; ok {
		return fmt.Errorf("%s", reason)
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.ToAddress
	}
	return out
}

type allowNLimiter struct {
	remaining int
}

func (l *allowNLimiter) Allow(ctx context.Context, campaignID, limit int) bool {
	if l.remaining <= 0 {
		return false
	}
	l.remaining--
	return true
}
