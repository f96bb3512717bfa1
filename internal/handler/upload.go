package handler

import (
	"mime/multipart"
	"strings"
)

// mimeAllowed checks an upload's declared content type against the
// configured allow list. An empty list allows everything.
func mimeAllowed(allowed []string, fileHeader *multipart.FileHeader) bool {
	if len(allowed) == 0 {
		return true
	}
	contentType := strings.ToLower(strings.TrimSpace(fileHeader.Header.Get("Content-Type")))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), contentType) {
			return true
		}
	}
	return false
}
