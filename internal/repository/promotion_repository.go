package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

// PromotionRepository applies the effect of a promotion in one transaction:
// find-or-create the target class, move the membership, and advance the
// student's current term. Precondition checks belong to the caller.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository constructs a PromotionRepository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// Apply executes the promotion effect. Either every step commits or none do.
func (r *PromotionRepository) Apply(ctx context.Context, params models.ApplyPromotionParams) (*models.AppliedPromotion, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promotion tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	applied := &models.AppliedPromotion{}

	const findClass = `SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at
        FROM classes WHERE name = $1 AND term_id = $2 AND gender = $3 LIMIT 1 FOR UPDATE`
	var class models.Class
	err = tx.GetContext(ctx, &class, findClass, params.TargetClassName, params.TargetTermID, params.TargetGender)
	switch {
	case err == sql.ErrNoRows:
		class, err = r.createClass(ctx, tx, params, now)
		if err != nil {
			return nil, err
		}
		applied.ClassCreated = true
		applied.SessionsAdded = params.SessionCount
	case err != nil:
		return nil, fmt.Errorf("find target class: %w", err)
	}
	applied.Class = class

	const removeMembership = `DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`
	if _, err := tx.ExecContext(ctx, removeMembership, params.FromClassID, params.StudentID); err != nil {
		return nil, fmt.Errorf("remove old membership: %w", err)
	}

	const addMembership = `INSERT INTO class_students (class_id, student_id, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (class_id, student_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, addMembership, class.ID, params.StudentID, now); err != nil {
		return nil, fmt.Errorf("add new membership: %w", err)
	}

	const advanceTerm = `UPDATE users SET current_term_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, advanceTerm, params.StudentID, params.TargetTermID, now); err != nil {
		return nil, fmt.Errorf("advance current term: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit promotion tx: %w", err)
	}
	return applied, nil
}

func (r *PromotionRepository) createClass(ctx context.Context, tx *sqlx.Tx, params models.ApplyPromotionParams, now time.Time) (models.Class, error) {
	const findTeacher = `SELECT id FROM users WHERE role = $1 ORDER BY created_at ASC LIMIT 1`
	var teacherID string
	if err := tx.GetContext(ctx, &teacherID, findTeacher, models.RoleTeacher); err != nil {
		if err == sql.ErrNoRows {
			return models.Class{}, appErrors.ErrNoTeacherAvailable
		}
		return models.Class{}, fmt.Errorf("find fallback teacher: %w", err)
	}

	class := models.Class{
		ID:        uuid.NewString(),
		Name:      params.TargetClassName,
		Gender:    params.TargetGender,
		TeacherID: teacherID,
		TermID:    params.TargetTermID,
		Slug:      params.TargetClassSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const insertClass = `INSERT INTO classes (id, name, gender, teacher_id, term_id, slug, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insertClass, class.ID, class.Name, class.Gender, class.TeacherID, class.TermID, class.Slug, class.CreatedAt, class.UpdatedAt); err != nil {
		return models.Class{}, fmt.Errorf("create target class: %w", err)
	}

	if params.SessionCount > 0 {
		values := make([]string, 0, params.SessionCount)
		args := make([]interface{}, 0, params.SessionCount*4)
		for n := 1; n <= params.SessionCount; n++ {
			base := len(args)
			values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
			args = append(args, uuid.NewString(), class.ID, n, now)
		}
		query := fmt.Sprintf("INSERT INTO attendance_sessions (id, class_id, session_number, created_at) VALUES %s", strings.Join(values, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return models.Class{}, fmt.Errorf("seed target class sessions: %w", err)
		}
	}
	return class, nil
}
