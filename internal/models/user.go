package models

import (
	"strings"
	"time"
)

// UserRole distinguishes the two account types served by the portal.
type UserRole string

const (
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Gender identifies the cohort a student or class belongs to.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid returns true when the gender is a supported value.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Label returns the capitalized form used in class names ("Male", "Female").
func (g Gender) Label() string {
	if g == "" {
		return ""
	}
	s := string(g)
	return strings.ToUpper(s[:1]) + s[1:]
}

// User represents a teacher or student account. The national ID doubles as
// the login username. CurrentTermID is meaningful only for students.
type User struct {
	ID            string     `db:"id" json:"id"`
	NationalID    string     `db:"national_id" json:"national_id"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          UserRole   `db:"role" json:"role"`
	Gender        Gender     `db:"gender" json:"gender,omitempty"`
	CurrentTermID *string    `db:"current_term_id" json:"current_term_id,omitempty"`
	ParentPhone   *string    `db:"parent_phone" json:"parent_phone,omitempty"`
	Slug          string     `db:"slug" json:"slug"`
	Active        bool       `db:"active" json:"active"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	TermID    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
