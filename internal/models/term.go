package models

import "time"

// Term models an ordered academic period. Promotion looks up the successor
// by Order+1 exactly; orders are not required to be contiguous.
type Term struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Order     int       `db:"term_order" json:"order"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	Page      int
	PageSize  int
	SortOrder string
}
