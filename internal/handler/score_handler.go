package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	"github.com/hamrah-edu/school-portal-api/internal/service"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/response"
)

// ScoreHandler exposes grading and promotion endpoints.
type ScoreHandler struct {
	scores     *service.ScoreService
	promotions *service.PromotionService
	metrics    *service.MetricsService
}

// NewScoreHandler constructs a score handler.
func NewScoreHandler(scores *service.ScoreService, promotions *service.PromotionService, metrics *service.MetricsService) *ScoreHandler {
	return &ScoreHandler{scores: scores, promotions: promotions, metrics: metrics}
}

// Set godoc
// @Summary Save a student's score for a term
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body service.SetScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /scores [post]
func (h *ScoreHandler) Set(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims.Role == models.RoleTeacher {
		req.TeacherID = claims.UserID
	}

	result, err := h.scores.SetScore(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Promotion != nil {
		h.metrics.RecordPromotion(string(result.Promotion.Outcome))
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a student's score for a term
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Param termID path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/scores/{termID} [get]
func (h *ScoreHandler) Get(c *gin.Context) {
	score, err := h.scores.GetScore(c.Request.Context(), c.Param("id"), c.Param("termID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// ListForStudent godoc
// @Summary List all of a student's scores
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/scores [get]
func (h *ScoreHandler) ListForStudent(c *gin.Context) {
	scores, err := h.scores.ListStudentScores(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// Mine godoc
// @Summary List the authenticated student's scores
// @Tags Scores
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/scores [get]
func (h *ScoreHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	scores, err := h.scores.ListStudentScores(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// MyScore godoc
// @Summary The authenticated student's score for one term
// @Tags Scores
// @Produce json
// @Param termID path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /student/scores/{termID} [get]
func (h *ScoreHandler) MyScore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	score, err := h.scores.GetScore(c.Request.Context(), claims.UserID, c.Param("termID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// Promote godoc
// @Summary Attempt to advance a student to the next term
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/promote [post]
func (h *ScoreHandler) Promote(c *gin.Context) {
	result, err := h.promotions.Promote(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPromotion(string(result.Outcome))
	response.JSON(c, http.StatusOK, result, nil)
}

// Reevaluate godoc
// @Summary Recompute a term's pass flag from the stored score
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Param termID path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/scores/{termID}/reevaluate [post]
func (h *ScoreHandler) Reevaluate(c *gin.Context) {
	result, err := h.scores.ReevaluateRecord(c.Request.Context(), c.Param("id"), c.Param("termID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Promotion != nil {
		h.metrics.RecordPromotion(string(result.Promotion.Outcome))
	}
	response.JSON(c, http.StatusOK, result, nil)
}
