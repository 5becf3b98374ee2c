package model

// Member is a directory entry consumed for targeting. The campaign engine
// only reads members; the case-management side owns their lifecycle.
type Member struct {
	ID               int    `db:"id" json:"id"`
	OrganizationID   int    `db:"organization_id" json:"organization_id"`
	FirstName        string `db:"first_name" json:"first_name"`
	LastName         string `db:"last_name" json:"last_name"`
	Email            string `db:"email" json:"email"`
	Phone            string `db:"phone" json:"phone"`
	DepartmentID     int    `db:"department_id" json:"department_id"`
	MembershipStatus string `db:"membership_status" json:"membership_status"`
	EmploymentType   string `db:"employment_type" json:"employment_type"`
}

// FullName joins first and last name for template contexts.
func (m *Member) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
