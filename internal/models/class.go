package models

import "time"

// Class represents a cohort of students under one teacher within one term.
// (Name, TermID, Gender) is the find-or-create key used by promotion.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Gender    Gender    `db:"gender" json:"gender"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with joined display columns.
type ClassDetail struct {
	Class
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	TermName     string `db:"term_name" json:"term_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	TermID    string
	TeacherID string
	Gender    Gender
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
