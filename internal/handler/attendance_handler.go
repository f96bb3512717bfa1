package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	"github.com/hamrah-edu/school-portal-api/internal/service"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/response"
)

// AttendanceHandler exposes per-session presence endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Take godoc
// @Summary Record attendance for a session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.TakeAttendanceRequest true "Attendance entries"
// @Success 204
// @Router /attendance/sessions/{id} [post]
func (h *AttendanceHandler) Take(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.TakeAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.SessionID = c.Param("id")
	if claims.Role == models.RoleTeacher {
		req.TeacherID = claims.UserID
	}

	if err := h.service.Take(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roll godoc
// @Summary Session roll with recorded presence
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/roll [get]
func (h *AttendanceHandler) Roll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	teacherID := ""
	if claims.Role == models.RoleTeacher {
		teacherID = claims.UserID
	}

	roll, err := h.service.Roll(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roll, nil)
}

// ClassSessions godoc
// @Summary List a class's attendance sessions
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/sessions [get]
func (h *AttendanceHandler) ClassSessions(c *gin.Context) {
	sessions, err := h.service.ClassSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// MyAttendance godoc
// @Summary The authenticated student's presence per session of a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /student/classes/{id}/attendance [get]
func (h *AttendanceHandler) MyAttendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.service.StudentAttendance(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// StudentAttendance godoc
// @Summary One student's presence per session of a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param classID path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/classes/{classID}/attendance [get]
func (h *AttendanceHandler) StudentAttendance(c *gin.Context) {
	rows, err := h.service.StudentAttendance(c.Request.Context(), c.Param("id"), c.Param("classID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
