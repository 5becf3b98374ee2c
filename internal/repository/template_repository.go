package repository

import (
	"database/sql"
	"time"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

type TemplateRepositoryInterface interface {
	Create(t *model.MessageTemplate) error
	GetByID(id int) (*model.MessageTemplate, error)
	ListByOrganization(orgID int) ([]model.MessageTemplate, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) Create(t *model.MessageTemplate) error {
	t.CreatedAt = time.Now()
	query := `
        INSERT INTO message_templates (organization_id, name, subject, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	return r.DB.QueryRow(query, t.OrganizationID, t.Name, t.Subject, t.Body, t.CreatedAt).Scan(&t.ID)
}

func (r *TemplateRepository) GetByID(id int) (*model.MessageTemplate, error) {
	query := `SELECT id, organization_id, name, subject, body, created_at FROM message_templates WHERE id=$1`
	var t model.MessageTemplate
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) ListByOrganization(orgID int) ([]model.MessageTemplate, error) {
	rows, err := r.DB.Query(`SELECT id, organization_id, name, subject, body, created_at FROM message_templates WHERE organization_id=$1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.MessageTemplate{}
	for rows.Next() {
		var t model.MessageTemplate
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
