package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

type mockAttendanceStore struct {
	sessions map[string]*models.AttendanceSession
	records  map[string]*models.AttendanceRecord
}

func attendanceKey(sessionID, studentID string) string { return sessionID + "|" + studentID }

func (m *mockAttendanceStore) ListSessionsByClass(ctx context.Context, classID string) ([]models.AttendanceSession, error) {
	var list []models.AttendanceSession
	for _, s := range m.sessions {
		if s.ClassID == classID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (m *mockAttendanceStore) FindSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceStore) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if m.records == nil {
		m.records = map[string]*models.AttendanceRecord{}
	}
	m.records[attendanceKey(record.SessionID, record.StudentID)] = record
	return nil
}

func (m *mockAttendanceStore) SessionRoll(ctx context.Context, sessionID, classID string) ([]models.SessionRollRow, error) {
	return nil, nil
}

func (m *mockAttendanceStore) ListByStudentAndClass(ctx context.Context, studentID, classID string) ([]models.StudentSessionRow, error) {
	return nil, nil
}

type mockAttendanceClasses struct {
	classes map[string]*models.Class
}

func (m *mockAttendanceClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func attendanceFixture() (*mockAttendanceStore, *mockAttendanceClasses, *AttendanceService) {
	store := &mockAttendanceStore{sessions: map[string]*models.AttendanceSession{
		"sess-1": {ID: "sess-1", ClassID: "c1", SessionNumber: 1},
	}}
	classes := &mockAttendanceClasses{classes: map[string]*models.Class{
		"c1": {ID: "c1", TeacherID: "teacher-1"},
	}}
	svc := NewAttendanceService(store, classes, validator.New(), zap.NewNop())
	return store, classes, svc
}

func TestAttendanceServiceTake(t *testing.T) {
	store, _, svc := attendanceFixture()

	err := svc.Take(context.Background(), TakeAttendanceRequest{
		SessionID: "sess-1",
		TeacherID: "teacher-1",
		Entries: []AttendanceEntry{
			{StudentID: "s1", Present: true},
			{StudentID: "s2", Present: false},
		},
	})
	require.NoError(t, err)
	require.Len(t, store.records, 2)
	assert.True(t, store.records[attendanceKey("sess-1", "s1")].Present)
	assert.False(t, store.records[attendanceKey("sess-1", "s2")].Present)
}

func TestAttendanceServiceTakeReplacesEarlierMark(t *testing.T) {
	store, _, svc := attendanceFixture()

	req := TakeAttendanceRequest{
		SessionID: "sess-1",
		TeacherID: "teacher-1",
		Entries:   []AttendanceEntry{{StudentID: "s1", Present: true}},
	}
	require.NoError(t, svc.Take(context.Background(), req))

	req.Entries[0].Present = false
	require.NoError(t, svc.Take(context.Background(), req))

	require.Len(t, store.records, 1)
	assert.False(t, store.records[attendanceKey("sess-1", "s1")].Present)
}

func TestAttendanceServiceTakeForeignClassForbidden(t *testing.T) {
	store, _, svc := attendanceFixture()

	err := svc.Take(context.Background(), TakeAttendanceRequest{
		SessionID: "sess-1",
		TeacherID: "someone-else",
		Entries:   []AttendanceEntry{{StudentID: "s1", Present: true}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, store.records)
}

func TestAttendanceServiceTakeUnknownSession(t *testing.T) {
	_, _, svc := attendanceFixture()

	err := svc.Take(context.Background(), TakeAttendanceRequest{
		SessionID: "ghost",
		Entries:   []AttendanceEntry{{StudentID: "s1", Present: true}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
