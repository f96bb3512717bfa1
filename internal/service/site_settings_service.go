package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

const siteSettingsCacheKey = "portal:site_settings"

type siteSettingsStore interface {
	Get(ctx context.Context) (*models.SiteSettings, error)
	Upsert(ctx context.Context, settings *models.SiteSettings) error
}

type settingsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type logoSigner interface {
	Generate(entityID, relPath string) (string, time.Time, error)
}

// UpdateSiteSettingsRequest carries the editable site configuration.
type UpdateSiteSettingsRequest struct {
	SiteName    string `json:"site_name" validate:"required"`
	AboutUs     string `json:"about_us"`
	Rules       string `json:"rules"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email" validate:"omitempty,email"`
	LogoPath    *string `json:"-"`
}

// SiteSettingsService serves the public site configuration, cached in Redis
// since every page of the portal reads it.
type SiteSettingsService struct {
	settings  siteSettingsStore
	cache     settingsCache
	signer    logoSigner
	cacheTTL  time.Duration
	apiPrefix string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSiteSettingsService constructs SiteSettingsService.
func NewSiteSettingsService(settings siteSettingsStore, cache settingsCache, signer logoSigner, cacheTTL time.Duration, apiPrefix string, validate *validator.Validate, logger *zap.Logger) *SiteSettingsService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteSettingsService{settings: settings, cache: cache, signer: signer, cacheTTL: cacheTTL, apiPrefix: apiPrefix, validator: validate, logger: logger}
}

// Get returns the site settings, preferring the cached copy.
func (s *SiteSettingsService) Get(ctx context.Context) (*models.SiteSettings, error) {
	if s.cache != nil {
		var cached models.SiteSettings
		err := s.cache.Get(ctx, siteSettingsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("site settings cache read failed", zap.Error(err))
		}
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site settings not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site settings")
	}
	s.decorate(settings)

	if s.cache != nil {
		if err := s.cache.Set(ctx, siteSettingsCacheKey, settings, s.cacheTTL); err != nil {
			s.logger.Warn("site settings cache write failed", zap.Error(err))
		}
	}
	return settings, nil
}

// Update saves the settings and invalidates the cache.
func (s *SiteSettingsService) Update(ctx context.Context, req UpdateSiteSettingsRequest) (*models.SiteSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid site settings payload")
	}

	current, err := s.settings.Get(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site settings")
	}

	settings := &models.SiteSettings{
		SiteName:    req.SiteName,
		AboutUs:     req.AboutUs,
		Rules:       req.Rules,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	}
	if current != nil {
		settings.ID = current.ID
		settings.LogoPath = current.LogoPath
	}
	if req.LogoPath != nil {
		settings.LogoPath = req.LogoPath
	}

	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save site settings")
	}
	s.decorate(settings)

	if s.cache != nil {
		if err := s.cache.Delete(ctx, siteSettingsCacheKey); err != nil {
			s.logger.Warn("site settings cache invalidation failed", zap.Error(err))
		}
	}
	return settings, nil
}

func (s *SiteSettingsService) decorate(settings *models.SiteSettings) {
	if s.signer == nil || settings.LogoPath == nil || *settings.LogoPath == "" {
		return
	}
	token, _, err := s.signer.Generate(settings.ID, *settings.LogoPath)
	if err != nil {
		s.logger.Warn("failed to sign logo url", zap.Error(err))
		return
	}
	settings.LogoURL = s.apiPrefix + "/media/" + token
}
