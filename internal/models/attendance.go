package models

import "time"

// AttendanceSession is one numbered meeting of a class. Every class is
// seeded with a fixed batch of sessions at creation time.
type AttendanceSession struct {
	ID            string    `db:"id" json:"id"`
	ClassID       string    `db:"class_id" json:"class_id"`
	SessionNumber int       `db:"session_number" json:"session_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AttendanceRecord captures one student's presence at one session. Records
// are upserted by (session, student); last write wins.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionRollRow pairs a student with their current presence flag for the
// take-attendance view. Students without a record default to absent.
type SessionRollRow struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Present     bool   `db:"present" json:"present"`
}

// StudentSessionRow is one row of a student's attendance detail per class.
type StudentSessionRow struct {
	SessionID     string `db:"session_id" json:"session_id"`
	SessionNumber int    `db:"session_number" json:"session_number"`
	Present       bool   `db:"present" json:"present"`
}
