package models

import "time"

// SiteSettings is the single-row site configuration managed by staff.
type SiteSettings struct {
	ID          string    `db:"id" json:"id"`
	SiteName    string    `db:"site_name" json:"site_name"`
	LogoPath    *string   `db:"logo_path" json:"-"`
	LogoURL     string    `db:"-" json:"logo_url,omitempty"`
	AboutUs     string    `db:"about_us" json:"about_us"`
	Rules       string    `db:"rules" json:"rules"`
	Address     string    `db:"address" json:"address"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Email       string    `db:"email" json:"email"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
