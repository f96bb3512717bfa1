package models

import "time"

// Score holds a student's graded components for a term. Any component may
// be nil while not yet graded; absent components contribute zero.
type Score struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	TermID        string    `db:"term_id" json:"term_id"`
	Quiz1         *float64  `db:"quiz_1" json:"quiz_1,omitempty"`
	Quiz2         *float64  `db:"quiz_2" json:"quiz_2,omitempty"`
	OralListening *float64  `db:"oral_listening" json:"oral_listening,omitempty"`
	ClassActivity *float64  `db:"class_activity" json:"class_activity,omitempty"`
	Final         *float64  `db:"final" json:"final,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Total sums the components that have been graded.
func (s *Score) Total() float64 {
	total := 0.0
	for _, component := range []*float64{s.Quiz1, s.Quiz2, s.OralListening, s.ClassActivity, s.Final} {
		if component != nil {
			total += *component
		}
	}
	return total
}

// AcademicRecord is the authoritative pass/fail outcome for (student, term).
type AcademicRecord struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Passed    bool      `db:"passed" json:"passed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScoreSheetRow is one exported row of a class score sheet.
type ScoreSheetRow struct {
	StudentID     string   `db:"student_id" json:"student_id"`
	StudentName   string   `db:"student_name" json:"student_name"`
	Quiz1         *float64 `db:"quiz_1" json:"quiz_1,omitempty"`
	Quiz2         *float64 `db:"quiz_2" json:"quiz_2,omitempty"`
	OralListening *float64 `db:"oral_listening" json:"oral_listening,omitempty"`
	ClassActivity *float64 `db:"class_activity" json:"class_activity,omitempty"`
	Final         *float64 `db:"final" json:"final,omitempty"`
	Passed        *bool    `db:"passed" json:"passed,omitempty"`
}
