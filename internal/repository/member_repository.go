package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
)

// MemberRepositoryInterface is the read-only view of the member directory
// the campaign engine targets against.
type MemberRepositoryInterface interface {
	GetByID(id int) (*model.Member, error)
	FindByCriteria(orgID int, tc model.TargetingCriteria) ([]model.Member, error)
}

type MemberRepository struct {
	DB *sql.DB
}

// GetByID fetches a member by ID
func (r *MemberRepository) GetByID(id int) (*model.Member, error) {
	query := `
        SELECT id, organization_id, first_name, last_name, email, phone, department_id, membership_status, employment_type
        FROM members
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var m model.Member
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
		&m.DepartmentID, &m.MembershipStatus, &m.EmploymentType); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &m, nil
}

// FindByCriteria returns every member of the organization matching the
// targeting criteria and holding a non-empty email address. Populated
// dimensions are ANDed; values within one dimension are ORed via ANY.
func (r *MemberRepository) FindByCriteria(orgID int, tc model.TargetingCriteria) ([]model.Member, error) {
	query := `
        SELECT id, organization_id, first_name, last_name, email, phone, department_id, membership_status, employment_type
        FROM members
        WHERE organization_id = $1 AND email <> ''
    `
	args := []interface{}{orgID}
	argPos := 2

	if len(tc.DepartmentIDs) > 0 {
		query += fmt.Sprintf(" AND department_id = ANY($%d)", argPos)
		args = append(args, pq.Array(tc.DepartmentIDs))
		argPos++
	}
	if len(tc.MembershipStatuses) > 0 {
		query += fmt.Sprintf(" AND membership_status = ANY($%d)", argPos)
		args = append(args, pq.Array(tc.MembershipStatuses))
		argPos++
	}
	if len(tc.EmploymentTypes) > 0 {
		query += fmt.Sprintf(" AND employment_type = ANY($%d)", argPos)
		args = append(args, pq.Array(tc.EmploymentTypes))
	}

	query += " ORDER BY id"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
			&m.DepartmentID, &m.MembershipStatus, &m.EmploymentType); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

var _ MemberRepositoryInterface = (*MemberRepository)(nil)
