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

// ScoreRepository manages persistence for term scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs a ScoreRepository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Upsert writes a student's score row for a term, keyed by (student, term).
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now
	const query = `INSERT INTO scores (id, student_id, term_id, quiz_1, quiz_2, oral_listening, class_activity, final, created_at, updated_at)
        VALUES (:id, :student_id, :term_id, :quiz_1, :quiz_2, :oral_listening, :class_activity, :final, :created_at, :updated_at)
        ON CONFLICT (student_id, term_id) DO UPDATE SET
        quiz_1 = EXCLUDED.quiz_1, quiz_2 = EXCLUDED.quiz_2, oral_listening = EXCLUDED.oral_listening,
        class_activity = EXCLUDED.class_activity, final = EXCLUDED.final, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// FindByStudentAndTerm fetches a student's score row for one term.
func (r *ScoreRepository) FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.Score, error) {
	const query = `SELECT id, student_id, term_id, quiz_1, quiz_2, oral_listening, class_activity, final, created_at, updated_at
        FROM scores WHERE student_id = $1 AND term_id = $2 LIMIT 1`
	var score models.Score
	if err := r.db.GetContext(ctx, &score, query, studentID, termID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find score: %w", err)
	}
	return &score, nil
}

// ListByStudent returns all of a student's score rows, oldest term first.
func (r *ScoreRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Score, error) {
	const query = `SELECT s.id, s.student_id, s.term_id, s.quiz_1, s.quiz_2, s.oral_listening, s.class_activity, s.final, s.created_at, s.updated_at
        FROM scores s JOIN terms t ON t.id = s.term_id
        WHERE s.student_id = $1 ORDER BY t.term_order ASC`
	var scores []models.Score
	if err := r.db.SelectContext(ctx, &scores, query, studentID); err != nil {
		return nil, fmt.Errorf("list scores by student: %w", err)
	}
	return scores, nil
}

// ScoreSheet returns the graded roster of a class, joining scores and the
// pass flag for the class's term.
func (r *ScoreRepository) ScoreSheet(ctx context.Context, classID string) ([]models.ScoreSheetRow, error) {
	const query = `SELECT u.id AS student_id, u.first_name || ' ' || u.last_name AS student_name,
        s.quiz_1, s.quiz_2, s.oral_listening, s.class_activity, s.final, ar.passed
        FROM users u
        JOIN class_students cs ON cs.student_id = u.id AND cs.class_id = $1
        JOIN classes c ON c.id = cs.class_id
        LEFT JOIN scores s ON s.student_id = u.id AND s.term_id = c.term_id
        LEFT JOIN academic_records ar ON ar.student_id = u.id AND ar.term_id = c.term_id
        ORDER BY u.last_name, u.first_name`
	var rows []models.ScoreSheetRow
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("score sheet: %w", err)
	}
	return rows, nil
}
