package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hamrah-edu/school-portal-api/internal/service"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/response"
)

// AnnouncementHandler exposes site announcement endpoints. Creation accepts
// a multipart form so the picture uploads alongside the text fields.
type AnnouncementHandler struct {
	service       *service.AnnouncementService
	maxUploadSize int64
	allowedMIMEs  []string
}

// NewAnnouncementHandler constructs an announcement handler.
func NewAnnouncementHandler(svc *service.AnnouncementService, maxUploadSize int64, allowedMIMEs []string) *AnnouncementHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	return &AnnouncementHandler{service: svc, maxUploadSize: maxUploadSize, allowedMIMEs: allowedMIMEs}
}

// List godoc
// @Summary List announcements
// @Tags Announcements
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	announcements, pagination, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcements, pagination)
}

// Get godoc
// @Summary Get announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	announcement, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Create godoc
// @Summary Create announcement
// @Tags Announcements
// @Accept mpfd
// @Produce json
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param picture formData file false "Picture"
// @Success 201 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	req := service.CreateAnnouncementRequest{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}

	if fileHeader, err := c.FormFile("picture"); err == nil {
		if !mimeAllowed(h.allowedMIMEs, fileHeader) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported picture type"))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable picture upload"))
			return
		}
		defer file.Close() //nolint:errcheck
		req.Picture = file
		req.PictureName = fileHeader.Filename
	}

	announcement, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, announcement)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
