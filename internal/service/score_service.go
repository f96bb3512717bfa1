package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

type scoreStore interface {
	Upsert(ctx context.Context, score *models.Score) error
	FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.Score, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Score, error)
}

type scoreRecordStore interface {
	FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.AcademicRecord, error)
	Create(ctx context.Context, record *models.AcademicRecord) error
	SetPassed(ctx context.Context, studentID, termID string, passed bool) error
}

type scoreClassStore interface {
	ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.Class, error)
}

type promoter interface {
	Promote(ctx context.Context, studentID string) (*models.PromotionResult, error)
}

// SetScoreRequest carries the graded components for one (student, term).
type SetScoreRequest struct {
	StudentID     string   `json:"student_id" validate:"required"`
	TermID        string   `json:"term_id" validate:"required"`
	Quiz1         *float64 `json:"quiz_1" validate:"omitempty,gte=0"`
	Quiz2         *float64 `json:"quiz_2" validate:"omitempty,gte=0"`
	OralListening *float64 `json:"oral_listening" validate:"omitempty,gte=0"`
	ClassActivity *float64 `json:"class_activity" validate:"omitempty,gte=0"`
	Final         *float64 `json:"final" validate:"omitempty,gte=0"`

	// TeacherID, when set, restricts the write to teachers who actually
	// teach the student in that term.
	TeacherID string `json:"-"`
}

// SetScoreResult reports the saved score, the pass/fail record, and the
// promotion attempt when the save triggered one.
type SetScoreResult struct {
	Score     *models.Score           `json:"score"`
	Record    *models.AcademicRecord  `json:"record"`
	Promotion *models.PromotionResult `json:"promotion,omitempty"`
}

// ScoreService persists scores and derives the term's pass/fail record. The
// record's pass flag is decided once, on first save; later edits change the
// stored components but never flip an existing record.
type ScoreService struct {
	scores    scoreStore
	records   scoreRecordStore
	users     promotionStudentStore
	terms     promotionTermStore
	classes   scoreClassStore
	promoter  promoter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScoreService constructs ScoreService.
func NewScoreService(scores scoreStore, records scoreRecordStore, users promotionStudentStore, terms promotionTermStore, classes scoreClassStore, promoter promoter, validate *validator.Validate, logger *zap.Logger) *ScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{scores: scores, records: records, users: users, terms: terms, classes: classes, promoter: promoter, validator: validate, logger: logger}
}

// SetScore upserts a student's score for a term. On the first save for that
// (student, term) the academic record is created with passed = total above
// the threshold, and a passing record immediately attempts promotion.
func (s *ScoreService) SetScore(ctx context.Context, req SetScoreRequest) (*SetScoreResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "scores can only be recorded for students")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	if req.TeacherID != "" {
		if err := s.checkOwnership(ctx, req.StudentID, req.TermID, req.TeacherID); err != nil {
			return nil, err
		}
	}

	score := &models.Score{
		StudentID:     req.StudentID,
		TermID:        req.TermID,
		Quiz1:         req.Quiz1,
		Quiz2:         req.Quiz2,
		OralListening: req.OralListening,
		ClassActivity: req.ClassActivity,
		Final:         req.Final,
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save score")
	}

	result := &SetScoreResult{Score: score}

	record, err := s.records.FindByStudentAndTerm(ctx, req.StudentID, req.TermID)
	switch {
	case err == sql.ErrNoRows:
		passed := score.Total() > passThreshold
		record = &models.AcademicRecord{StudentID: req.StudentID, TermID: req.TermID, Passed: passed}
		if err := s.records.Create(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic record")
		}
		result.Record = record
		if passed {
			promotion, err := s.promoter.Promote(ctx, req.StudentID)
			if err != nil {
				return nil, appErrors.FromError(err)
			}
			result.Promotion = promotion
		}
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic record")
	default:
		result.Record = record
	}
	return result, nil
}

// ReevaluateRecord recomputes the pass flag from the stored score and, when
// the student now passes, attempts promotion. This is the explicit escape
// hatch from the first-save-wins rule.
func (s *ScoreService) ReevaluateRecord(ctx context.Context, studentID, termID string) (*SetScoreResult, error) {
	score, err := s.scores.FindByStudentAndTerm(ctx, studentID, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no score recorded for student and term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score")
	}
	record, err := s.records.FindByStudentAndTerm(ctx, studentID, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no academic record for student and term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic record")
	}

	passed := score.Total() > passThreshold
	if err := s.records.SetPassed(ctx, studentID, termID, passed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic record")
	}
	record.Passed = passed

	result := &SetScoreResult{Score: score, Record: record}
	if passed {
		promotion, err := s.promoter.Promote(ctx, studentID)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		result.Promotion = promotion
	}
	return result, nil
}

// GetScore returns a student's score row for one term.
func (s *ScoreService) GetScore(ctx context.Context, studentID, termID string) (*models.Score, error) {
	score, err := s.scores.FindByStudentAndTerm(ctx, studentID, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "score not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score")
	}
	return score, nil
}

// ListStudentScores returns all of a student's scores, oldest term first.
func (s *ScoreService) ListStudentScores(ctx context.Context, studentID string) ([]models.Score, error) {
	scores, err := s.scores.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	return scores, nil
}

func (s *ScoreService) checkOwnership(ctx context.Context, studentID, termID, teacherID string) error {
	classes, err := s.classes.ListByStudentAndTerm(ctx, studentID, termID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student classes")
	}
	for _, class := range classes {
		if class.TeacherID == teacherID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "student is not in one of your classes")
}
