package repository

import (
	"database/sql"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

// EngagementRepositoryInterface appends open/click events. The tables are
// append-only audit rows, never updated or deleted.
type EngagementRepositoryInterface interface {
	InsertOpen(e *model.OpenEvent) error
	InsertClick(e *model.ClickEvent) error
	ListOpens(recipientID int) ([]model.OpenEvent, error)
	ListClicks(recipientID int) ([]model.ClickEvent, error)
}

type EngagementRepository struct {
	DB *sql.DB
}

func (r *EngagementRepository) InsertOpen(e *model.OpenEvent) error {
	query := `
        INSERT INTO open_events (recipient_id, user_agent, ip_address, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	return r.DB.QueryRow(query, e.RecipientID, e.UserAgent, e.IPAddress, e.CreatedAt).Scan(&e.ID)
}

func (r *EngagementRepository) InsertClick(e *model.ClickEvent) error {
	query := `
        INSERT INTO click_events (recipient_id, url, user_agent, ip_address, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	return r.DB.QueryRow(query, e.RecipientID, e.URL, e.UserAgent, e.IPAddress, e.CreatedAt).Scan(&e.ID)
}

func (r *EngagementRepository) ListOpens(recipientID int) ([]model.OpenEvent, error) {
	rows, err := r.DB.Query(`
        SELECT id, recipient_id, user_agent, ip_address, created_at
        FROM open_events WHERE recipient_id=$1 ORDER BY id
    `, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.OpenEvent{}
	for rows.Next() {
		var e model.OpenEvent
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.UserAgent, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *EngagementRepository) ListClicks(recipientID int) ([]model.ClickEvent, error) {
	rows, err := r.DB.Query(`
        SELECT id, recipient_id, url, user_agent, ip_address, created_at
        FROM click_events WHERE recipient_id=$1 ORDER BY id
    `, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.ClickEvent{}
	for rows.Next() {
		var e model.ClickEvent
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.URL, &e.UserAgent, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ EngagementRepositoryInterface = (*EngagementRepository)(nil)
