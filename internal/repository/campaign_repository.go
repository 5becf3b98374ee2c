package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/AllPhaseMedia/unionsoftware-sub001/internal/errors"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	Update(c *model.Campaign) error
	Delete(id int) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)

	// Lifecycle stamps. Each writes status plus its timestamp in one statement.
	MarkScheduled(id int, at time.Time) error
	MarkStarted(id int) error
	MarkPaused(id int) error
	MarkResumed(id int) error
	MarkCancelled(id int) error
	MarkCompleted(id int) error

	// Counter updates are in-database increments, never read-modify-write:
	// opens and clicks arrive concurrently from many email clients.
	SetTotalRecipients(id, total int) error
	IncrementSent(id int) error
	IncrementFailed(id int) error
	IncrementOpens(id int, unique bool) error
	IncrementClicks(id int, unique bool) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, organization_id, name, subject, body, template_id, criteria,
       batch_size, rate_per_second, status,
       total_recipients, sent_count, failed_count,
       open_count, click_count, unique_open_count, unique_click_count,
       scheduled_at, started_at, paused_at, completed_at, created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	criteria, err := json.Marshal(c.Criteria)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO campaigns (organization_id, name, subject, body, template_id, criteria, batch_size, rate_per_second, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.OrganizationID, c.Name, c.Subject, c.Body, c.TemplateID,
		criteria, c.BatchSize, c.RatePerSecond, c.Status, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	criteria, err := json.Marshal(c.Criteria)
	if err != nil {
		return err
	}
	query := `
        UPDATE campaigns
        SET name=$1, subject=$2, body=$3, template_id=$4, criteria=$5, batch_size=$6, rate_per_second=$7, updated_at=NOW()
        WHERE id=$8
    `
	_, err = r.DB.Exec(query, c.Name, c.Subject, c.Body, c.TemplateID, criteria, c.BatchSize, c.RatePerSecond, c.ID)
	return err
}

func (r *CampaignRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ====================== Lifecycle stamps ======================

func (r *CampaignRepository) MarkScheduled(id int, at time.Time) error {
	return r.exec(`UPDATE campaigns SET status='scheduled', scheduled_at=$2, updated_at=NOW() WHERE id=$1`, id, at)
}

func (r *CampaignRepository) MarkStarted(id int) error {
	return r.exec(`UPDATE campaigns SET status='sending', started_at=NOW(), updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) MarkPaused(id int) error {
	return r.exec(`UPDATE campaigns SET status='paused', paused_at=NOW(), updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) MarkResumed(id int) error {
	return r.exec(`UPDATE campaigns SET status='sending', paused_at=NULL, updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) MarkCancelled(id int) error {
	return r.exec(`UPDATE campaigns SET status='cancelled', updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) MarkCompleted(id int) error {
	return r.exec(`UPDATE campaigns SET status='completed', completed_at=NOW(), updated_at=NOW() WHERE id=$1`, id)
}

// ====================== Counters ======================

func (r *CampaignRepository) SetTotalRecipients(id, total int) error {
	return r.exec(`UPDATE campaigns SET total_recipients=$2, updated_at=NOW() WHERE id=$1`, id, total)
}

func (r *CampaignRepository) IncrementSent(id int) error {
	return r.exec(`UPDATE campaigns SET sent_count=sent_count+1, updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) IncrementFailed(id int) error {
	return r.exec(`UPDATE campaigns SET failed_count=failed_count+1, updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) IncrementOpens(id int, unique bool) error {
	if unique {
		return r.exec(`UPDATE campaigns SET open_count=open_count+1, unique_open_count=unique_open_count+1, updated_at=NOW() WHERE id=$1`, id)
	}
	return r.exec(`UPDATE campaigns SET open_count=open_count+1, updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) IncrementClicks(id int, unique bool) error {
	if unique {
		return r.exec(`UPDATE campaigns SET click_count=click_count+1, unique_click_count=unique_click_count+1, updated_at=NOW() WHERE id=$1`, id)
	}
	return r.exec(`UPDATE campaigns SET click_count=click_count+1, updated_at=NOW() WHERE id=$1`, id)
}

func (r *CampaignRepository) exec(query string, args ...interface{}) error {
	_, err := r.DB.Exec(query, args...)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var criteria []byte
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.Subject, &c.Body, &c.TemplateID, &criteria,
		&c.BatchSize, &c.RatePerSecond, &c.Status,
		&c.TotalRecipients, &c.SentCount, &c.FailedCount,
		&c.OpenCount, &c.ClickCount, &c.UniqueOpenCount, &c.UniqueClickCount,
		&c.ScheduledAt, &c.StartedAt, &c.PausedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &c.Criteria); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
