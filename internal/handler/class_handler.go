package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	"github.com/hamrah-edu/school-portal-api/internal/service"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/response"
)

// ClassHandler exposes class administration and membership endpoints.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param term_id query string false "Filter by term"
// @Param teacher_id query string false "Filter by teacher"
// @Param gender query string false "Filter by gender"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.TermID = c.Query("term_id")
	filter.TeacherID = c.Query("teacher_id")
	filter.Gender = models.Gender(c.Query("gender"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	classes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class by ID or slug
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID or slug"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	key := c.Param("id")
	class, err := h.service.Get(c.Request.Context(), key)
	if err != nil && appErrors.Is(err, appErrors.ErrNotFound) {
		class, err = h.service.GetBySlug(c.Request.Context(), key)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Enroll godoc
// @Summary Enroll student into class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body map[string]string true "Student"
// @Success 204
// @Router /classes/{id}/students [post]
func (h *ClassHandler) Enroll(c *gin.Context) {
	var payload struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id required"))
		return
	}
	if err := h.service.Enroll(c.Request.Context(), c.Param("id"), payload.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Withdraw godoc
// @Summary Withdraw student from class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Param studentID path string true "Student ID"
// @Success 204
// @Router /classes/{id}/students/{studentID} [delete]
func (h *ClassHandler) Withdraw(c *gin.Context) {
	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), c.Param("studentID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary List students of a class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	students, err := h.service.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Mine godoc
// @Summary List the authenticated teacher's classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teacher/classes [get]
func (h *ClassHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classes, err := h.service.ListByTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// MyHistory godoc
// @Summary List every class the authenticated student has belonged to
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/classes [get]
func (h *ClassHandler) MyHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classes, err := h.service.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}
