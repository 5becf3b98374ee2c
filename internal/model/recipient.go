package model

import "time"

// RecipientStatus is the per-recipient delivery state.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSending RecipientStatus = "sending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
	RecipientSkipped RecipientStatus = "skipped"
)

// Recipient is one addressed, trackable instance of a campaign's message.
// Name and Email are snapshots taken at generation time; later edits to the
// member record do not flow back into an already generated recipient.
type Recipient struct {
	ID         int             `db:"id" json:"id"`
	CampaignID int             `db:"campaign_id" json:"campaign_id"`
	MemberID   int             `db:"member_id" json:"member_id"`
	Name       string          `db:"name" json:"name"`
	Email      string          `db:"email" json:"email"`
	Token      string          `db:"token" json:"token"`
	Status     RecipientStatus `db:"status" json:"status"`
	LastError  string          `db:"last_error" json:"last_error,omitempty"`
	RetryCount int             `db:"retry_count" json:"retry_count"`

	OpenCount     int        `db:"open_count" json:"open_count"`
	ClickCount    int        `db:"click_count" json:"click_count"`
	FirstOpenedAt *time.Time `db:"first_opened_at" json:"first_opened_at,omitempty"`
	LastOpenedAt  *time.Time `db:"last_opened_at" json:"last_opened_at,omitempty"`

	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
