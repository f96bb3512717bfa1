package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

type announcementStore interface {
	List(ctx context.Context, limit, offset int) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type uploadStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// CreateAnnouncementRequest describes announcement creation payload. The
// picture arrives as a multipart stream alongside the form fields.
type CreateAnnouncementRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`

	PictureName string    `json:"-"`
	Picture     io.Reader `json:"-"`
}

// AnnouncementService manages site announcements and their picture uploads.
type AnnouncementService struct {
	announcements announcementStore
	storage       uploadStorage
	signer        logoSigner
	apiPrefix     string
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAnnouncementService constructs AnnouncementService.
func NewAnnouncementService(announcements announcementStore, storage uploadStorage, signer logoSigner, apiPrefix string, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{announcements: announcements, storage: storage, signer: signer, apiPrefix: apiPrefix, validator: validate, logger: logger}
}

// List returns announcements with pagination metadata.
func (s *AnnouncementService) List(ctx context.Context, page, pageSize int) ([]models.Announcement, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	announcements, total, err := s.announcements.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	for i := range announcements {
		s.decorate(&announcements[i])
	}
	return announcements, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get fetches an announcement by identifier.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	s.decorate(announcement)
	return announcement, nil
}

// Create stores the announcement and its optional picture.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	announcement := &models.Announcement{Title: req.Title, Content: req.Content}

	if req.Picture != nil {
		filename := fmt.Sprintf("announcements/%s_%s%s",
			time.Now().UTC().Format("20060102_150405"),
			uuid.NewString()[:8],
			strings.ToLower(filepath.Ext(req.PictureName)),
		)
		relPath, err := s.storage.SaveStream(filename, req.Picture)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store picture")
		}
		announcement.PicturePath = &relPath
	}

	if err := s.announcements.Create(ctx, announcement); err != nil {
		if announcement.PicturePath != nil {
			if cleanupErr := s.storage.Delete(*announcement.PicturePath); cleanupErr != nil {
				s.logger.Warn("failed to remove orphaned picture", zap.Error(cleanupErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.decorate(announcement)
	return announcement, nil
}

// Delete removes an announcement and its stored picture.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	announcement, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.announcements.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	if announcement.PicturePath != nil {
		if err := s.storage.Delete(*announcement.PicturePath); err != nil {
			s.logger.Warn("failed to delete picture file", zap.Error(err))
		}
	}
	return nil
}

func (s *AnnouncementService) decorate(announcement *models.Announcement) {
	if s.signer == nil || announcement.PicturePath == nil || *announcement.PicturePath == "" {
		return
	}
	token, _, err := s.signer.Generate(announcement.ID, *announcement.PicturePath)
	if err != nil {
		s.logger.Warn("failed to sign picture url", zap.Error(err))
		return
	}
	announcement.PictureURL = s.apiPrefix + "/media/" + token
}
