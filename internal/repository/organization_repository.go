package repository

import (
	"database/sql"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

type OrganizationRepositoryInterface interface {
	GetByID(id int) (*model.Organization, error)
}

type OrganizationRepository struct {
	DB *sql.DB
}

func (r *OrganizationRepository) GetByID(id int) (*model.Organization, error) {
	query := `
        SELECT id, name, from_name, from_address, website_url
        FROM organizations
        WHERE id = $1
    `
	var o model.Organization
	err := r.DB.QueryRow(query, id).Scan(&o.ID, &o.Name, &o.FromName, &o.FromAddress, &o.WebsiteURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &o, nil
}

var _ OrganizationRepositoryInterface = (*OrganizationRepository)(nil)
