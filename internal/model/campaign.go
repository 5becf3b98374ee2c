package model

import "time"

// CampaignStatus is the lifecycle state of a campaign. Draft is the only
// initial state; Completed and Cancelled are terminal.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusScheduled CampaignStatus = "scheduled"
	StatusSending   CampaignStatus = "sending"
	StatusPaused    CampaignStatus = "paused"
	StatusCompleted CampaignStatus = "completed"
	StatusCancelled CampaignStatus = "cancelled"
)

// TargetingCriteria selects which members become recipients. Populated
// dimensions are ANDed together, values within one dimension are ORed.
// All dimensions empty means every member with a usable email address.
type TargetingCriteria struct {
	DepartmentIDs      []int    `json:"department_ids,omitempty"`
	MembershipStatuses []string `json:"membership_statuses,omitempty"`
	EmploymentTypes    []string `json:"employment_types,omitempty"`
}

// Empty reports whether no dimension is populated.
func (tc TargetingCriteria) Empty() bool {
	return len(tc.DepartmentIDs) == 0 && len(tc.MembershipStatuses) == 0 && len(tc.EmploymentTypes) == 0
}

type Campaign struct {
	ID             int               `db:"id" json:"id"`
	OrganizationID int               `db:"organization_id" json:"organization_id"`
	Name           string            `db:"name" json:"name"`
	Subject        string            `db:"subject" json:"subject"`
	Body           string            `db:"body" json:"body"`
	TemplateID     *int              `db:"template_id" json:"template_id,omitempty"`
	Criteria       TargetingCriteria `db:"criteria" json:"criteria"`
	BatchSize      int               `db:"batch_size" json:"batch_size"`
	RatePerSecond  int               `db:"rate_per_second" json:"rate_per_second"`
	Status         CampaignStatus    `db:"status" json:"status"`

	TotalRecipients  int `db:"total_recipients" json:"total_recipients"`
	SentCount        int `db:"sent_count" json:"sent_count"`
	FailedCount      int `db:"failed_count" json:"failed_count"`
	OpenCount        int `db:"open_count" json:"open_count"`
	ClickCount       int `db:"click_count" json:"click_count"`
	UniqueOpenCount  int `db:"unique_open_count" json:"unique_open_count"`
	UniqueClickCount int `db:"unique_click_count" json:"unique_click_count"`

	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	PausedAt    *time.Time `db:"paused_at" json:"paused_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
