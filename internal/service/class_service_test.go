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

type mockClassStore struct {
	classes   map[string]*models.Class
	members   map[string][]string
	created   []*models.Class
	removed   [][2]string
}

func (m *mockClassStore) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	return nil, 0, nil
}

func (m *mockClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) FindBySlug(ctx context.Context, slug string) (*models.Class, error) {
	for _, c := range m.classes {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) FindByKey(ctx context.Context, name, termID string, gender models.Gender) (*models.Class, error) {
	for _, c := range m.classes {
		if c.Name == name && c.TermID == termID && c.Gender == gender {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = map[string]*models.Class{}
	}
	if class.ID == "" {
		class.ID = "class-new"
	}
	m.classes[class.ID] = class
	m.created = append(m.created, class)
	return nil
}

func (m *mockClassStore) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error) {
	return nil, nil
}

func (m *mockClassStore) ListByStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error) {
	return nil, nil
}

func (m *mockClassStore) AddStudent(ctx context.Context, classID, studentID string) error {
	if m.members == nil {
		m.members = map[string][]string{}
	}
	m.members[classID] = append(m.members[classID], studentID)
	return nil
}

func (m *mockClassStore) RemoveStudent(ctx context.Context, classID, studentID string) error {
	m.removed = append(m.removed, [2]string{classID, studentID})
	return nil
}

func (m *mockClassStore) ListStudents(ctx context.Context, classID string) ([]models.User, error) {
	return nil, nil
}

type mockClassUsers struct {
	users        map[string]*models.User
	firstTeacher *models.User
}

func (m *mockClassUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassUsers) FindFirstTeacher(ctx context.Context) (*models.User, error) {
	if m.firstTeacher != nil {
		return m.firstTeacher, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassTerms struct{}

func (m *mockClassTerms) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: id}, nil
}

type mockSeeder struct {
	seeded map[string]int
}

func (m *mockSeeder) SeedSessions(ctx context.Context, classID string, count int) error {
	if m.seeded == nil {
		m.seeded = map[string]int{}
	}
	m.seeded[classID] += count
	return nil
}

func TestClassServiceCreateWithDefaultTeacher(t *testing.T) {
	store := &mockClassStore{}
	users := &mockClassUsers{firstTeacher: &models.User{ID: "teacher-1", Role: models.RoleTeacher}}
	seeder := &mockSeeder{}
	svc := NewClassService(store, users, &mockClassTerms{}, seeder, validator.New(), zap.NewNop())

	class, err := svc.Create(context.Background(), CreateClassRequest{Name: "Level 1 - Term 1 - Male", Gender: models.GenderMale, TermID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", class.TeacherID)
	assert.Equal(t, sessionsPerClass, seeder.seeded[class.ID])
}

func TestClassServiceCreateNoTeacherAnywhere(t *testing.T) {
	store := &mockClassStore{}
	users := &mockClassUsers{}
	svc := NewClassService(store, users, &mockClassTerms{}, &mockSeeder{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateClassRequest{Name: "Level 1", Gender: models.GenderMale, TermID: "t1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoTeacherAvailable))
	assert.Empty(t, store.created)
}

func TestClassServiceCreateDuplicateKey(t *testing.T) {
	store := &mockClassStore{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Level 1", TermID: "t1", Gender: models.GenderMale},
	}}
	users := &mockClassUsers{firstTeacher: &models.User{ID: "teacher-1", Role: models.RoleTeacher}}
	svc := NewClassService(store, users, &mockClassTerms{}, &mockSeeder{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateClassRequest{Name: "Level 1", Gender: models.GenderMale, TermID: "t1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestClassServiceCreateRejectsNonTeacher(t *testing.T) {
	store := &mockClassStore{}
	users := &mockClassUsers{users: map[string]*models.User{
		"student-1": {ID: "student-1", Role: models.RoleStudent},
	}}
	svc := NewClassService(store, users, &mockClassTerms{}, &mockSeeder{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateClassRequest{Name: "Level 1", Gender: models.GenderMale, TermID: "t1", TeacherID: "student-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestClassServiceEnrollGenderMismatchAllowed(t *testing.T) {
	store := &mockClassStore{classes: map[string]*models.Class{
		"c1": {ID: "c1", Gender: models.GenderMale, TermID: "t1"},
	}}
	users := &mockClassUsers{users: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent, Gender: models.GenderFemale},
	}}
	svc := NewClassService(store, users, &mockClassTerms{}, &mockSeeder{}, validator.New(), zap.NewNop())

	err := svc.Enroll(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.Contains(t, store.members["c1"], "s1")
}

func TestClassServiceEnrollRejectsTeacher(t *testing.T) {
	store := &mockClassStore{classes: map[string]*models.Class{
		"c1": {ID: "c1", Gender: models.GenderMale, TermID: "t1"},
	}}
	users := &mockClassUsers{users: map[string]*models.User{
		"teach": {ID: "teach", Role: models.RoleTeacher},
	}}
	svc := NewClassService(store, users, &mockClassTerms{}, &mockSeeder{}, validator.New(), zap.NewNop())

	err := svc.Enroll(context.Background(), "c1", "teach")
	require.Error(t, err)
	assert.Empty(t, store.members)
}

func TestClassServiceWithdraw(t *testing.T) {
	store := &mockClassStore{classes: map[string]*models.Class{
		"c1": {ID: "c1", Gender: models.GenderMale, TermID: "t1"},
	}}
	svc := NewClassService(store, &mockClassUsers{}, &mockClassTerms{}, &mockSeeder{}, validator.New(), zap.NewNop())

	err := svc.Withdraw(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"c1", "s1"}}, store.removed)
}
