package model

import "time"

// OpenEvent is one tracked pixel hit. Rows are append-only.
type OpenEvent struct {
	ID          int       `db:"id" json:"id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	UserAgent   string    `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ClickEvent is one tracked link follow. Rows are append-only.
type ClickEvent struct {
	ID          int       `db:"id" json:"id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	URL         string    `db:"url" json:"url"`
	UserAgent   string    `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
