package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hamrah-edu/school-portal-api/internal/models"
)

// AcademicRecordRepository manages the pass/fail record per (student, term).
type AcademicRecordRepository struct {
	db *sqlx.DB
}

// NewAcademicRecordRepository constructs an AcademicRecordRepository.
func NewAcademicRecordRepository(db *sqlx.DB) *AcademicRecordRepository {
	return &AcademicRecordRepository{db: db}
}

// FindByStudentAndTerm fetches a record by its natural key.
func (r *AcademicRecordRepository) FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.AcademicRecord, error) {
	const query = `SELECT id, student_id, term_id, passed, created_at, updated_at
        FROM academic_records WHERE student_id = $1 AND term_id = $2 LIMIT 1`
	var record models.AcademicRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, termID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find academic record: %w", err)
	}
	return &record, nil
}

// Create inserts a new record. Conflicting keys keep the existing row so a
// concurrent first write still wins.
func (r *AcademicRecordRepository) Create(ctx context.Context, record *models.AcademicRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO academic_records (id, student_id, term_id, passed, created_at, updated_at)
        VALUES (:id, :student_id, :term_id, :passed, :created_at, :updated_at)
        ON CONFLICT (student_id, term_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create academic record: %w", err)
	}
	return nil
}

// SetPassed overwrites the pass flag on an existing record.
func (r *AcademicRecordRepository) SetPassed(ctx context.Context, studentID, termID string, passed bool) error {
	const query = `UPDATE academic_records SET passed = $3, updated_at = $4 WHERE student_id = $1 AND term_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, termID, passed, time.Now().UTC()); err != nil {
		return fmt.Errorf("set academic record passed: %w", err)
	}
	return nil
}
