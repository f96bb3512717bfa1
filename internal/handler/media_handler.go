package handler

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/response"
	"github.com/hamrah-edu/school-portal-api/pkg/storage"
)

// MediaHandler serves uploaded files through signed, expiring tokens.
type MediaHandler struct {
	signer  *storage.SignedURLSigner
	storage *storage.LocalStorage
}

// NewMediaHandler constructs a media handler.
func NewMediaHandler(signer *storage.SignedURLSigner, store *storage.LocalStorage) *MediaHandler {
	return &MediaHandler{signer: signer, storage: store}
}

// Download godoc
// @Summary Download uploaded media by signed token
// @Tags Media
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired media token"))
		return
	}

	file, err := h.storage.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to stat media file"))
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
