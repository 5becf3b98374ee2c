package model

type Organization struct {
	ID          int    `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	FromName    string `db:"from_name" json:"from_name"`
	FromAddress string `db:"from_address" json:"from_address"`
	WebsiteURL  string `db:"website_url" json:"website_url"`
}
