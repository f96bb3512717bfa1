package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

func newPromotionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func applyParams() models.ApplyPromotionParams {
	return models.ApplyPromotionParams{
		StudentID:       "student-1",
		FromClassID:     "class-old",
		TargetClassName: "Level 1 - Term 2 - Male",
		TargetClassSlug: "level-1-term-2-male",
		TargetTermID:    "term-2",
		TargetGender:    models.GenderMale,
		SessionCount:    12,
	}
}

func TestPromotionRepositoryApplyExistingClass(t *testing.T) {
	db, mock, cleanup := newPromotionMock(t)
	defer cleanup()
	repo := NewPromotionRepository(db)
	params := applyParams()

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"id", "name", "gender", "teacher_id", "term_id", "slug", "created_at", "updated_at"}).
		AddRow("class-new", params.TargetClassName, "male", "teacher-1", "term-2", params.TargetClassSlug, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at").
		WithArgs(params.TargetClassName, params.TargetTermID, params.TargetGender).
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM class_students").
		WithArgs(params.FromClassID, params.StudentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO class_students").
		WithArgs("class-new", params.StudentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET current_term_id").
		WithArgs(params.StudentID, params.TargetTermID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := repo.Apply(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, applied.ClassCreated)
	assert.Equal(t, 0, applied.SessionsAdded)
	assert.Equal(t, "class-new", applied.Class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryApplyCreatesClassAndSessions(t *testing.T) {
	db, mock, cleanup := newPromotionMock(t)
	defer cleanup()
	repo := NewPromotionRepository(db)
	params := applyParams()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at").
		WithArgs(params.TargetClassName, params.TargetTermID, params.TargetGender).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM users WHERE role").
		WithArgs(models.RoleTeacher).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("teacher-1"))
	mock.ExpectExec("INSERT INTO classes").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnResult(sqlmock.NewResult(12, 12))
	mock.ExpectExec("DELETE FROM class_students").
		WithArgs(params.FromClassID, params.StudentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO class_students").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET current_term_id").
		WithArgs(params.StudentID, params.TargetTermID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := repo.Apply(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, applied.ClassCreated)
	assert.Equal(t, 12, applied.SessionsAdded)
	assert.Equal(t, params.TargetClassName, applied.Class.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryApplyNoTeacherRollsBack(t *testing.T) {
	db, mock, cleanup := newPromotionMock(t)
	defer cleanup()
	repo := NewPromotionRepository(db)
	params := applyParams()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at").
		WithArgs(params.TargetClassName, params.TargetTermID, params.TargetGender).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM users WHERE role").
		WithArgs(models.RoleTeacher).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), params)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoTeacherAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}
