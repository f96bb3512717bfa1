package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/slugify"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindBySlug(ctx context.Context, slug string) (*models.User, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	NationalIDExists(ctx context.Context, nationalID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateCurrentTerm(ctx context.Context, userID, termID string) error
}

// RegisterRequest describes account registration payload. Gender and the
// starting term only apply to students.
type RegisterRequest struct {
	NationalID    string          `json:"national_id" validate:"required,min=5,max=10"`
	FirstName     string          `json:"first_name" validate:"required"`
	LastName      string          `json:"last_name" validate:"required"`
	Password      string          `json:"password" validate:"required,min=8"`
	Role          models.UserRole `json:"role" validate:"required,oneof=TEACHER STUDENT"`
	Gender        models.Gender   `json:"gender" validate:"omitempty,oneof=male female"`
	CurrentTermID *string         `json:"current_term_id"`
	ParentPhone   *string         `json:"parent_phone"`
}

// UserService handles registration and profile access.
type UserService struct {
	users     userStore
	terms     classTermStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userStore, terms classTermStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, terms: terms, validator: validate, logger: logger}
}

// Register creates a new account. Profile slugs derive from the full name
// and get a short random suffix on collision.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if req.Role == models.RoleStudent && !req.Gender.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "students must declare a gender")
	}

	exists, err := s.users.NationalIDExists(ctx, req.NationalID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check national id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "national id already registered")
	}

	if req.CurrentTermID != nil && *req.CurrentTermID != "" {
		if _, err := s.terms.FindByID(ctx, *req.CurrentTermID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "starting term not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load starting term")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		NationalID:   req.NationalID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Gender:       req.Gender,
		ParentPhone:  req.ParentPhone,
		Active:       true,
	}
	if req.Role == models.RoleStudent {
		user.CurrentTermID = req.CurrentTermID
	}

	slug, err := s.uniqueSlug(ctx, user.FullName())
	if err != nil {
		return nil, err
	}
	user.Slug = slug

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// Get fetches a user by identifier.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// GetBySlug fetches a user by profile slug.
func (s *UserService) GetBySlug(ctx context.Context, slug string) (*models.User, error) {
	user, err := s.users.FindBySlug(ctx, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AssignTerm sets a student's current term.
func (s *UserService) AssignTerm(ctx context.Context, studentID, termID string) error {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only students carry a current term")
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if err := s.users.UpdateCurrentTerm(ctx, studentID, termID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign term")
	}
	return nil
}

func (s *UserService) uniqueSlug(ctx context.Context, fullName string) (string, error) {
	base := slugify.Make(fullName)
	slug := base
	for {
		exists, err := s.users.SlugExists(ctx, slug)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
		}
		if !exists {
			return slug, nil
		}
		slug = base + "-" + uuid.NewString()[:6]
	}
}
