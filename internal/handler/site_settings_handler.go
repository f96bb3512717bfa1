package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hamrah-edu/school-portal-api/internal/service"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/response"
)

type uploadSaver interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// SiteSettingsHandler exposes the public site configuration.
type SiteSettingsHandler struct {
	service       *service.SiteSettingsService
	uploads       uploadSaver
	maxUploadSize int64
	allowedMIMEs  []string
}

// NewSiteSettingsHandler constructs a site settings handler.
func NewSiteSettingsHandler(svc *service.SiteSettingsService, uploads uploadSaver, maxUploadSize int64, allowedMIMEs []string) *SiteSettingsHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	return &SiteSettingsHandler{service: svc, uploads: uploads, maxUploadSize: maxUploadSize, allowedMIMEs: allowedMIMEs}
}

// Get godoc
// @Summary Get site settings
// @Tags SiteSettings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /site-settings [get]
func (h *SiteSettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update site settings
// @Tags SiteSettings
// @Accept json
// @Produce json
// @Param payload body service.UpdateSiteSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /site-settings [put]
func (h *SiteSettingsHandler) Update(c *gin.Context) {
	var req service.UpdateSiteSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UploadLogo godoc
// @Summary Upload the site logo
// @Tags SiteSettings
// @Accept mpfd
// @Produce json
// @Param logo formData file true "Logo image"
// @Success 200 {object} response.Envelope
// @Router /site-settings/logo [put]
func (h *SiteSettingsHandler) UploadLogo(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "logo file required"))
		return
	}
	if !mimeAllowed(h.allowedMIMEs, fileHeader) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported logo type"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable logo upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	filename := fmt.Sprintf("site/logo_%s_%s%s",
		time.Now().UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
		strings.ToLower(filepath.Ext(fileHeader.Filename)),
	)
	relPath, err := h.uploads.SaveStream(filename, file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store logo"))
		return
	}

	// Keep the remaining fields as they are; only the logo changes.
	current, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	settings, err := h.service.Update(c.Request.Context(), service.UpdateSiteSettingsRequest{
		SiteName:    current.SiteName,
		AboutUs:     current.AboutUs,
		Rules:       current.Rules,
		Address:     current.Address,
		PhoneNumber: current.PhoneNumber,
		Email:       current.Email,
		LogoPath:    &relPath,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
