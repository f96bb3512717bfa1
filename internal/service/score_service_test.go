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

type mockScoreStore struct {
	scores map[string]*models.Score
}

func (m *mockScoreStore) Upsert(ctx context.Context, score *models.Score) error {
	if m.scores == nil {
		m.scores = map[string]*models.Score{}
	}
	if score.ID == "" {
		score.ID = "score-" + score.StudentID
	}
	copied := *score
	m.scores[recordKey(score.StudentID, score.TermID)] = &copied
	return nil
}

func (m *mockScoreStore) FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.Score, error) {
	if s, ok := m.scores[recordKey(studentID, termID)]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScoreStore) ListByStudent(ctx context.Context, studentID string) ([]models.Score, error) {
	var list []models.Score
	for _, s := range m.scores {
		if s.StudentID == studentID {
			list = append(list, *s)
		}
	}
	return list, nil
}

type mockRecordStore struct {
	records   map[string]*models.AcademicRecord
	created   []string
	setPassed []bool
}

func (m *mockRecordStore) FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.AcademicRecord, error) {
	if r, ok := m.records[recordKey(studentID, termID)]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecordStore) Create(ctx context.Context, record *models.AcademicRecord) error {
	if m.records == nil {
		m.records = map[string]*models.AcademicRecord{}
	}
	if record.ID == "" {
		record.ID = "rec-" + record.StudentID
	}
	m.records[recordKey(record.StudentID, record.TermID)] = record
	m.created = append(m.created, record.ID)
	return nil
}

func (m *mockRecordStore) SetPassed(ctx context.Context, studentID, termID string, passed bool) error {
	if r, ok := m.records[recordKey(studentID, termID)]; ok {
		r.Passed = passed
	}
	m.setPassed = append(m.setPassed, passed)
	return nil
}

type mockScoreClasses struct{}

func (m *mockScoreClasses) ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.Class, error) {
	return []models.Class{{ID: "c1", TeacherID: "teacher-1", TermID: termID}}, nil
}

type mockPromoter struct {
	calls  []string
	result *models.PromotionResult
	err    error
}

func (m *mockPromoter) Promote(ctx context.Context, studentID string) (*models.PromotionResult, error) {
	m.calls = append(m.calls, studentID)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &models.PromotionResult{StudentID: studentID, Outcome: models.PromotionPromoted}, nil
}

func newScoreService(scores *mockScoreStore, records *mockRecordStore, promoter *mockPromoter) *ScoreService {
	currentTerm := "t1"
	users := &mockPromotionUsers{users: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent, Gender: models.GenderMale, CurrentTermID: &currentTerm},
	}}
	terms := &mockPromotionTerms{
		byID:    map[string]*models.Term{"t1": {ID: "t1", Name: "Term 1", Order: 1}},
		byOrder: map[int]*models.Term{},
	}
	return NewScoreService(scores, records, users, terms, &mockScoreClasses{}, promoter, validator.New(), zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func TestScoreServiceFirstSavePassesAndPromotes(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	svc := newScoreService(scores, records, promoter)

	// 20 + 20 + 10 + 10 + 30 = 90, above the threshold.
	result, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID:     "s1",
		TermID:        "t1",
		Quiz1:         floatPtr(20),
		Quiz2:         floatPtr(20),
		OralListening: floatPtr(10),
		ClassActivity: floatPtr(10),
		Final:         floatPtr(30),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.True(t, result.Record.Passed)
	require.NotNil(t, result.Promotion)
	assert.Equal(t, models.PromotionPromoted, result.Promotion.Outcome)
	assert.Equal(t, []string{"s1"}, promoter.calls)
}

func TestScoreServiceFirstSaveFailDoesNotPromote(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	svc := newScoreService(scores, records, promoter)

	// 20 + 20 + 10 + 10 + 10 = 70: exactly the threshold is not a pass.
	result, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID:     "s1",
		TermID:        "t1",
		Quiz1:         floatPtr(20),
		Quiz2:         floatPtr(20),
		OralListening: floatPtr(10),
		ClassActivity: floatPtr(10),
		Final:         floatPtr(10),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.False(t, result.Record.Passed)
	assert.Nil(t, result.Promotion)
	assert.Empty(t, promoter.calls)
}

func TestScoreServiceFirstSavePromotionErrorSurfaces(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{err: appErrors.ErrNoTeacherAvailable}
	svc := newScoreService(scores, records, promoter)

	// The passing record triggers promotion; its failure must reach the
	// caller instead of being logged away.
	_, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(95),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoTeacherAvailable))
	assert.Equal(t, []string{"s1"}, promoter.calls)
}

func TestScoreServiceJustAboveThresholdPasses(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	svc := newScoreService(scores, records, promoter)

	result, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1",
		TermID:    "t1",
		Final:     floatPtr(70.01),
	})
	require.NoError(t, err)
	assert.True(t, result.Record.Passed)
}

func TestScoreServiceLaterSaveKeepsRecord(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	svc := newScoreService(scores, records, promoter)

	_, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(10),
	})
	require.NoError(t, err)
	require.Len(t, records.created, 1)

	// A later edit raises the total past the threshold, but the record's
	// verdict was already written and stays failed.
	result, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(95),
	})
	require.NoError(t, err)
	assert.False(t, result.Record.Passed)
	assert.Nil(t, result.Promotion)
	assert.Len(t, records.created, 1)
	assert.Empty(t, promoter.calls)

	stored, err := scores.FindByStudentAndTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)
	assert.InDelta(t, 95, stored.Total(), 0.0001)
}

func TestScoreServiceReevaluateFlipsAndPromotes(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	svc := newScoreService(scores, records, promoter)

	_, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(10),
	})
	require.NoError(t, err)
	_, err = svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(95),
	})
	require.NoError(t, err)

	result, err := svc.ReevaluateRecord(context.Background(), "s1", "t1")
	require.NoError(t, err)
	assert.True(t, result.Record.Passed)
	require.NotNil(t, result.Promotion)
	assert.Equal(t, []string{"s1"}, promoter.calls)
}

func TestScoreServiceOwnershipEnforced(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	svc := newScoreService(scores, records, promoter)

	_, err := svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(50), TeacherID: "someone-else",
	})
	require.Error(t, err)

	_, err = svc.SetScore(context.Background(), SetScoreRequest{
		StudentID: "s1", TermID: "t1", Final: floatPtr(50), TeacherID: "teacher-1",
	})
	require.NoError(t, err)
}

func TestScoreServiceRejectsNonStudent(t *testing.T) {
	scores := &mockScoreStore{}
	records := &mockRecordStore{}
	promoter := &mockPromoter{}
	currentTerm := "t1"
	users := &mockPromotionUsers{users: map[string]*models.User{
		"teach": {ID: "teach", Role: models.RoleTeacher, CurrentTermID: &currentTerm},
	}}
	terms := &mockPromotionTerms{byID: map[string]*models.Term{"t1": {ID: "t1"}}, byOrder: map[int]*models.Term{}}
	svc := NewScoreService(scores, records, users, terms, &mockScoreClasses{}, promoter, validator.New(), zap.NewNop())

	_, err := svc.SetScore(context.Background(), SetScoreRequest{StudentID: "teach", TermID: "t1", Final: floatPtr(50)})
	require.Error(t, err)
}
