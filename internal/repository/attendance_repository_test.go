package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamrah-edu/school-portal-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositorySeedSessions(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnResult(sqlmock.NewResult(12, 12))

	err := repo.SeedSessions(context.Background(), "class-1", 12)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySeedSessionsZeroIsNoop(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	err := repo.SeedSessions(context.Background(), "class-1", 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertRecord(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "session-1", "student-1", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.AttendanceRecord{SessionID: "session-1", StudentID: "student-1", Present: true}
	err := repo.UpsertRecord(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByStudentAndClass(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"session_id", "session_number", "present"}).
		AddRow("s1", 1, true).
		AddRow("s2", 2, false)
	mock.ExpectQuery("SELECT s.id AS session_id, s.session_number").
		WithArgs("student-1", "class-1").
		WillReturnRows(rows)

	result, err := repo.ListByStudentAndClass(context.Background(), "student-1", "class-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 1, result[0].SessionNumber)
	assert.False(t, result[1].Present)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySessionRoll(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "present"}).
		AddRow("student-1", "Sara Ahmadi", true)
	mock.ExpectQuery("SELECT u.id AS student_id").
		WithArgs("session-1", "class-1").
		WillReturnRows(rows)

	roll, err := repo.SessionRoll(context.Background(), "session-1", "class-1")
	require.NoError(t, err)
	require.Len(t, roll, 1)
	assert.Equal(t, "Sara Ahmadi", roll[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindSession(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "session_number", "created_at"}).
		AddRow("session-1", "class-1", 3, time.Now())
	mock.ExpectQuery("SELECT id, class_id, session_number, created_at FROM attendance_sessions").
		WithArgs("session-1").
		WillReturnRows(rows)

	session, err := repo.FindSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 3, session.SessionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
