package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

type mockPromotionUsers struct {
	users map[string]*models.User
}

func (m *mockPromotionUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type mockPromotionTerms struct {
	byID    map[string]*models.Term
	byOrder map[int]*models.Term
}

func (m *mockPromotionTerms) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPromotionTerms) FindByOrder(ctx context.Context, order int) (*models.Term, error) {
	if t, ok := m.byOrder[order]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockPromotionRecords struct {
	records map[string]*models.AcademicRecord
}

func recordKey(studentID, termID string) string { return studentID + "|" + termID }

func (m *mockPromotionRecords) FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.AcademicRecord, error) {
	if r, ok := m.records[recordKey(studentID, termID)]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

type mockPromotionClasses struct {
	memberships map[string][]models.Class
}

func (m *mockPromotionClasses) ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.Class, error) {
	return m.memberships[recordKey(studentID, termID)], nil
}

// mockApplier mimics the transactional store: it keeps a class registry
// keyed by (name, term, gender) and counts seeded sessions per class.
type mockApplier struct {
	classes  map[string]models.Class
	sessions map[string]int
	calls    []models.ApplyPromotionParams
	err      error
}

func newMockApplier() *mockApplier {
	return &mockApplier{classes: map[string]models.Class{}, sessions: map[string]int{}}
}

func classKey(name, termID string, gender models.Gender) string {
	return fmt.Sprintf("%s|%s|%s", name, termID, gender)
}

func (m *mockApplier) Apply(ctx context.Context, params models.ApplyPromotionParams) (*models.AppliedPromotion, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, params)
	key := classKey(params.TargetClassName, params.TargetTermID, params.TargetGender)
	if class, ok := m.classes[key]; ok {
		return &models.AppliedPromotion{Class: class, ClassCreated: false, SessionsAdded: 0}, nil
	}
	class := models.Class{
		ID:     "class-" + fmt.Sprint(len(m.classes)+1),
		Name:   params.TargetClassName,
		Gender: params.TargetGender,
		TermID: params.TargetTermID,
		Slug:   params.TargetClassSlug,
	}
	m.classes[key] = class
	m.sessions[class.ID] = params.SessionCount
	return &models.AppliedPromotion{Class: class, ClassCreated: true, SessionsAdded: params.SessionCount}, nil
}

func promotionFixture() (*mockPromotionUsers, *mockPromotionTerms, *mockPromotionRecords, *mockPromotionClasses, *mockApplier) {
	term1 := &models.Term{ID: "t1", Name: "Term 1", Order: 1}
	term2 := &models.Term{ID: "t2", Name: "Term 2", Order: 2}
	currentTerm := "t1"
	users := &mockPromotionUsers{users: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent, Gender: models.GenderMale, CurrentTermID: &currentTerm},
	}}
	terms := &mockPromotionTerms{
		byID:    map[string]*models.Term{"t1": term1, "t2": term2},
		byOrder: map[int]*models.Term{1: term1, 2: term2},
	}
	records := &mockPromotionRecords{records: map[string]*models.AcademicRecord{
		recordKey("s1", "t1"): {StudentID: "s1", TermID: "t1", Passed: true},
	}}
	classes := &mockPromotionClasses{memberships: map[string][]models.Class{
		recordKey("s1", "t1"): {{ID: "c1", Name: "Level 1 - Term 1 - Male", Gender: models.GenderMale, TermID: "t1"}},
	}}
	return users, terms, records, classes, newMockApplier()
}

func TestPromotionServicePromote(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	result, err := svc.Promote(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.PromotionPromoted, result.Outcome)
	assert.True(t, result.Outcome.Promoted())
	assert.Equal(t, "c1", result.FromClassID)
	assert.Equal(t, "Level 1 - Term 2 - Male", result.ToClassName)
	assert.Equal(t, "t2", result.NextTermID)
	assert.True(t, result.ClassCreated)
	assert.Equal(t, sessionsPerClass, result.SessionCount)

	require.Len(t, applier.calls, 1)
	assert.Equal(t, sessionsPerClass, applier.calls[0].SessionCount)
}

func TestPromotionServiceFindOrCreateIsIdempotent(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	currentTerm := "t1"
	users.users["s2"] = &models.User{ID: "s2", Role: models.RoleStudent, Gender: models.GenderMale, CurrentTermID: &currentTerm}
	records.records[recordKey("s2", "t1")] = &models.AcademicRecord{StudentID: "s2", TermID: "t1", Passed: true}
	classes.memberships[recordKey("s2", "t1")] = classes.memberships[recordKey("s1", "t1")]
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	first, err := svc.Promote(context.Background(), "s1")
	require.NoError(t, err)
	second, err := svc.Promote(context.Background(), "s2")
	require.NoError(t, err)

	assert.True(t, first.ClassCreated)
	assert.False(t, second.ClassCreated)
	assert.Equal(t, first.ToClassID, second.ToClassID)
	// One class, one batch of sessions. The second promotion reuses both.
	require.Len(t, applier.classes, 1)
	assert.Equal(t, sessionsPerClass, applier.sessions[first.ToClassID])
}

func TestPromotionServiceGenderScopedTarget(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	users.users["s1"].Gender = models.GenderFemale
	classes.memberships[recordKey("s1", "t1")] = []models.Class{
		{ID: "c1", Name: "Level 1 - Term 1 - Female", Gender: models.GenderFemale, TermID: "t1"},
	}
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	result, err := svc.Promote(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Level 1 - Term 2 - Female", result.ToClassName)
}

func TestPromotionServiceFollowsClassCohortOnMismatch(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	// Male student enrolled in a female-cohort class (mismatches are
	// advisory at enrollment). Promotion keeps him with the cohort.
	classes.memberships[recordKey("s1", "t1")] = []models.Class{
		{ID: "c1", Name: "Level 1 - Term 1 - Female", Gender: models.GenderFemale, TermID: "t1"},
	}
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	result, err := svc.Promote(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Level 1 - Term 2 - Female", result.ToClassName)
	require.Len(t, applier.calls, 1)
	assert.Equal(t, models.GenderFemale, applier.calls[0].TargetGender)
}

func TestPromotionServiceBaseNameWithoutSuffix(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	classes.memberships[recordKey("s1", "t1")] = []models.Class{{ID: "c1", Name: "Beginners", Gender: models.GenderMale, TermID: "t1"}}
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	result, err := svc.Promote(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Beginners - Term 2 - Male", result.ToClassName)
}

func TestPromotionServiceRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*mockPromotionUsers, *mockPromotionTerms, *mockPromotionRecords, *mockPromotionClasses)
		outcome models.PromotionOutcome
	}{
		{
			name: "teacher account",
			mutate: func(u *mockPromotionUsers, _ *mockPromotionTerms, _ *mockPromotionRecords, _ *mockPromotionClasses) {
				u.users["s1"].Role = models.RoleTeacher
			},
			outcome: models.PromotionNotStudent,
		},
		{
			name: "no current term",
			mutate: func(u *mockPromotionUsers, _ *mockPromotionTerms, _ *mockPromotionRecords, _ *mockPromotionClasses) {
				u.users["s1"].CurrentTermID = nil
			},
			outcome: models.PromotionNoCurrentTerm,
		},
		{
			name: "no academic record",
			mutate: func(_ *mockPromotionUsers, _ *mockPromotionTerms, r *mockPromotionRecords, _ *mockPromotionClasses) {
				delete(r.records, recordKey("s1", "t1"))
			},
			outcome: models.PromotionNotPassed,
		},
		{
			name: "term not passed",
			mutate: func(_ *mockPromotionUsers, _ *mockPromotionTerms, r *mockPromotionRecords, _ *mockPromotionClasses) {
				r.records[recordKey("s1", "t1")].Passed = false
			},
			outcome: models.PromotionNotPassed,
		},
		{
			name: "no next term",
			mutate: func(_ *mockPromotionUsers, t *mockPromotionTerms, _ *mockPromotionRecords, _ *mockPromotionClasses) {
				delete(t.byOrder, 2)
			},
			outcome: models.PromotionNoNextTerm,
		},
		{
			name: "no class membership",
			mutate: func(_ *mockPromotionUsers, _ *mockPromotionTerms, _ *mockPromotionRecords, c *mockPromotionClasses) {
				delete(c.memberships, recordKey("s1", "t1"))
			},
			outcome: models.PromotionNoEnrollment,
		},
		{
			name: "multiple class memberships",
			mutate: func(_ *mockPromotionUsers, _ *mockPromotionTerms, _ *mockPromotionRecords, c *mockPromotionClasses) {
				c.memberships[recordKey("s1", "t1")] = append(c.memberships[recordKey("s1", "t1")],
					models.Class{ID: "c2", Name: "Level 2 - Term 1 - Male", Gender: models.GenderMale, TermID: "t1"})
			},
			outcome: models.PromotionAmbiguousEnrollment,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users, terms, records, classes, applier := promotionFixture()
			tc.mutate(users, terms, records, classes)
			svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

			result, err := svc.Promote(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, result.Outcome)
			assert.False(t, result.Outcome.Promoted())
			assert.NotEmpty(t, result.Reason)
			// A rejected attempt never reaches the transactional store.
			assert.Empty(t, applier.calls)
		})
	}
}

func TestPromotionServiceUnknownStudent(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	_, err := svc.Promote(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestPromotionServiceNoTeacherIsHardError(t *testing.T) {
	users, terms, records, classes, applier := promotionFixture()
	applier.err = appErrors.ErrNoTeacherAvailable
	svc := NewPromotionService(users, terms, records, classes, applier, zap.NewNop())

	_, err := svc.Promote(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoTeacherAvailable))
}

func TestTargetClassName(t *testing.T) {
	assert.Equal(t, "Level 3 - Autumn - Female",
		TargetClassName("Level 3 - Spring - Female", "Autumn", models.GenderFemale))
	assert.Equal(t, "Starters - Term 2 - Male",
		TargetClassName("Starters", "Term 2", models.GenderMale))
}
