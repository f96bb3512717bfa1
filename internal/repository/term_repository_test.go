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
)

func newTermMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTermRepositoryFindByOrder(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "term_order", "slug", "created_at", "updated_at"}).
		AddRow("term-2", "Term 2", 2, "term-2", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, term_order, slug, created_at, updated_at FROM terms WHERE term_order").
		WithArgs(2).
		WillReturnRows(rows)

	term, err := repo.FindByOrder(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Term 2", term.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryFindByOrderMissing(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery("SELECT id, name, term_order, slug, created_at, updated_at FROM terms WHERE term_order").
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByOrder(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTermMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectExec("INSERT INTO terms").
		WithArgs(sqlmock.AnyArg(), "Term 1", 1, "term-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	term := &models.Term{Name: "Term 1", Order: 1, Slug: "term-1"}
	err := repo.Create(context.Background(), term)
	require.NoError(t, err)
	assert.NotEmpty(t, term.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
