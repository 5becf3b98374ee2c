package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

type RecipientRepositoryInterface interface {
	BulkInsert(recipients []model.Recipient) error
	DeletePending(campaignID int) (int, error)

	GetByID(id int) (*model.Recipient, error)
	GetByToken(token string) (*model.Recipient, error)
	FirstForCampaign(campaignID int) (*model.Recipient, error)
	ListByCampaign(campaignID, offset, limit int, status string) ([]model.Recipient, int, error)

	ClaimPending(campaignID, limit int) ([]model.Recipient, error)
	MarkSent(id int) error
	MarkFailed(id int, lastError string) error
	SkipPending(campaignID int) (int, error)

	CountPending(campaignID int) (int, error)
	CountByStatus(campaignID int) (map[string]int, error)

	RecordOpen(id int, at time.Time) (openCount int, err error)
	RecordClick(id int, at time.Time) (clickCount int, err error)
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, campaign_id, member_id, name, email, token, status, last_error, retry_count,
       open_count, click_count, first_opened_at, last_opened_at, sent_at, created_at, updated_at`

// BulkInsert loads generated recipients with a single COPY.
func (r *RecipientRepository) BulkInsert(recipients []model.Recipient) error {
	if len(recipients) == 0 {
		return nil
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(pq.CopyIn("campaign_recipients",
		"campaign_id", "member_id", "name", "email", "token", "status", "created_at", "updated_at"))
	if err != nil {
		tx.Rollback()
		return err
	}

	now := time.Now()
	for _, rec := range recipients {
		if _, err := stmt.Exec(rec.CampaignID, rec.MemberID, rec.Name, rec.Email, rec.Token,
			string(model.RecipientPending), now, now); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// DeletePending removes not-yet-sent recipients so the audience can be
// recomputed. Sent and failed history is never touched here.
func (r *RecipientRepository) DeletePending(campaignID int) (int, error) {
	res, err := r.DB.Exec(`DELETE FROM campaign_recipients WHERE campaign_id=$1 AND status='pending'`, campaignID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *RecipientRepository) GetByID(id int) (*model.Recipient, error) {
	return r.getOne(`SELECT `+recipientColumns+` FROM campaign_recipients WHERE id=$1`, id)
}

func (r *RecipientRepository) GetByToken(token string) (*model.Recipient, error) {
	return r.getOne(`SELECT `+recipientColumns+` FROM campaign_recipients WHERE token=$1`, token)
}

func (r *RecipientRepository) FirstForCampaign(campaignID int) (*model.Recipient, error) {
	return r.getOne(`SELECT `+recipientColumns+` FROM campaign_recipients WHERE campaign_id=$1 ORDER BY id LIMIT 1`, campaignID)
}

func (r *RecipientRepository) getOne(query string, arg interface{}) (*model.Recipient, error) {
	rec, err := scanRecipient(r.DB.QueryRow(query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipientRepository) ListByCampaign(campaignID, offset, limit int, status string) ([]model.Recipient, int, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE campaign_id=$1`
	args := []interface{}{campaignID}
	argPos := 2

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, 0, err
		}
		recipients = append(recipients, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id=$1`
	countArgs := []interface{}{campaignID}
	if status != "" {
		countQuery += " AND status=$2"
		countArgs = append(countArgs, status)
	}
	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return recipients, total, nil
}

// ClaimPending atomically flips up to limit pending recipients to sending
// and returns them in creation order. SKIP LOCKED keeps two overlapping
// batch calls from ever claiming the same row.
func (r *RecipientRepository) ClaimPending(campaignID, limit int) ([]model.Recipient, error) {
	query := `
        UPDATE campaign_recipients SET status='sending', updated_at=NOW()
        WHERE id IN (
            SELECT id FROM campaign_recipients
            WHERE campaign_id=$1 AND status='pending'
            ORDER BY id
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + recipientColumns

	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *rec)
	}
	return claimed, rows.Err()
}

func (r *RecipientRepository) MarkSent(id int) error {
	_, err := r.DB.Exec(`UPDATE campaign_recipients SET status='sent', sent_at=NOW(), last_error='', updated_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *RecipientRepository) MarkFailed(id int, lastError string) error {
	_, err := r.DB.Exec(`UPDATE campaign_recipients SET status='failed', last_error=$2, retry_count=retry_count+1, updated_at=NOW() WHERE id=$1`, id, lastError)
	return err
}

// SkipPending marks every remaining pending recipient skipped. Used on
// cancel so the status ledger still accounts for the whole audience.
func (r *RecipientRepository) SkipPending(campaignID int) (int, error) {
	res, err := r.DB.Exec(`UPDATE campaign_recipients SET status='skipped', updated_at=NOW() WHERE campaign_id=$1 AND status='pending'`, campaignID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *RecipientRepository) CountPending(campaignID int) (int, error) {
	var n int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 AND status='pending'`, campaignID).Scan(&n)
	return n, err
}

func (r *RecipientRepository) CountByStatus(campaignID int) (map[string]int, error) {
	rows, err := r.DB.Query(`SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"pending": 0, "sending": 0, "sent": 0, "failed": 0, "skipped": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// RecordOpen bumps the recipient's open counters in one statement and
// returns the new open count so the caller can tell a first open apart.
func (r *RecipientRepository) RecordOpen(id int, at time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(`
        UPDATE campaign_recipients
        SET open_count=open_count+1,
            first_opened_at=COALESCE(first_opened_at, $2),
            last_opened_at=$2,
            updated_at=NOW()
        WHERE id=$1
        RETURNING open_count
    `, id, at).Scan(&count)
	return count, err
}

func (r *RecipientRepository) RecordClick(id int, at time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(`
        UPDATE campaign_recipients
        SET click_count=click_count+1, updated_at=$2
        WHERE id=$1
        RETURNING click_count
    `, id, at).Scan(&count)
	return count, err
}

func scanRecipient(row rowScanner) (*model.Recipient, error) {
	var rec model.Recipient
	err := row.Scan(
		&rec.ID, &rec.CampaignID, &rec.MemberID, &rec.Name, &rec.Email, &rec.Token,
		&rec.Status, &rec.LastError, &rec.RetryCount,
		&rec.OpenCount, &rec.ClickCount, &rec.FirstOpenedAt, &rec.LastOpenedAt,
		&rec.SentAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
