package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/slugify"
)

type classStore interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindBySlug(ctx context.Context, slug string) (*models.Class, error)
	FindByKey(ctx context.Context, name, termID string, gender models.Gender) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error)
	AddStudent(ctx context.Context, classID, studentID string) error
	RemoveStudent(ctx context.Context, classID, studentID string) error
	ListStudents(ctx context.Context, classID string) ([]models.User, error)
}

type classUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindFirstTeacher(ctx context.Context) (*models.User, error)
}

type classTermStore interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type sessionSeeder interface {
	SeedSessions(ctx context.Context, classID string, count int) error
}

// CreateClassRequest describes class creation payload. TeacherID is
// optional; when empty the earliest-registered teacher owns the class.
type CreateClassRequest struct {
	Name      string        `json:"name" validate:"required"`
	Gender    models.Gender `json:"gender" validate:"required,oneof=male female"`
	TermID    string        `json:"term_id" validate:"required"`
	TeacherID string        `json:"teacher_id"`
}

// ClassService orchestrates class administration and membership.
type ClassService struct {
	classes   classStore
	users     classUserStore
	terms     classTermStore
	sessions  sessionSeeder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(classes classStore, users classUserStore, terms classTermStore, sessions sessionSeeder, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, users: users, terms: terms, sessions: sessions, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a class by identifier.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// GetBySlug fetches a class by slug.
func (s *ClassService) GetBySlug(ctx context.Context, slug string) (*models.Class, error) {
	class, err := s.classes.FindBySlug(ctx, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a new class and seeds its attendance sessions. Creating
// a class with no teacher anywhere in the system is a hard error.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	teacherID := req.TeacherID
	if teacherID == "" {
		teacher, err := s.users.FindFirstTeacher(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.ErrNoTeacherAvailable
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fallback teacher")
		}
		teacherID = teacher.ID
	} else {
		teacher, err := s.users.FindByID(ctx, teacherID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		if teacher.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "assigned user is not a teacher")
		}
	}

	if _, err := s.classes.FindByKey(ctx, req.Name, req.TermID, req.Gender); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists for this name, term and gender")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class identity")
	}

	class := &models.Class{
		Name:      req.Name,
		Gender:    req.Gender,
		TeacherID: teacherID,
		TermID:    req.TermID,
		Slug:      slugify.Make(req.Name),
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	if err := s.sessions.SeedSessions(ctx, class.ID, sessionsPerClass); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed class sessions")
	}
	s.logger.Info("class created",
		zap.String("class_id", class.ID),
		zap.String("term_id", class.TermID),
		zap.Int("sessions", sessionsPerClass),
	)
	return class, nil
}

// Enroll adds a student to a class. A gender mismatch between student and
// class is allowed but logged for staff review.
func (s *ClassService) Enroll(ctx context.Context, classID, studentID string) error {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only students can join classes")
	}
	if student.Gender != class.Gender {
		s.logger.Warn("gender mismatch on enrollment",
			zap.String("class_id", classID),
			zap.String("student_id", studentID),
			zap.String("class_gender", string(class.Gender)),
			zap.String("student_gender", string(student.Gender)),
		)
	}
	if err := s.classes.AddStudent(ctx, classID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return nil
}

// Withdraw removes a student from a class.
func (s *ClassService) Withdraw(ctx context.Context, classID, studentID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.classes.RemoveStudent(ctx, classID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw student")
	}
	return nil
}

// Roster returns the students of a class.
func (s *ClassService) Roster(ctx context.Context, classID string) ([]models.User, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	students, err := s.classes.ListStudents(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return students, nil
}

// ListByTeacher returns the classes a teacher teaches.
func (s *ClassService) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error) {
	classes, err := s.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher classes")
	}
	return classes, nil
}

// ListByStudent returns every class a student has belonged to.
func (s *ClassService) ListByStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error) {
	classes, err := s.classes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student classes")
	}
	return classes, nil
}
