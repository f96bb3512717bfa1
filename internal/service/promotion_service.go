package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
	"github.com/hamrah-edu/school-portal-api/pkg/slugify"
)

const (
	// sessionsPerClass is the number of attendance sessions seeded into
	// every newly created class.
	sessionsPerClass = 12
	// passThreshold is the strict lower bound a score total must exceed
	// for the term to count as passed. Exactly the threshold fails.
	passThreshold = 70.0
	// classNameSeparator splits a class name into its base and the
	// term/gender suffix parts.
	classNameSeparator = " - "
)

type promotionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type promotionTermStore interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindByOrder(ctx context.Context, order int) (*models.Term, error)
}

type promotionRecordStore interface {
	FindByStudentAndTerm(ctx context.Context, studentID, termID string) (*models.AcademicRecord, error)
}

type promotionClassStore interface {
	ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.Class, error)
}

type promotionApplier interface {
	Apply(ctx context.Context, params models.ApplyPromotionParams) (*models.AppliedPromotion, error)
}

// PromotionService moves a passing student from their current term into the
// matching class of the next term, creating that class when it does not
// exist yet. Every precondition failure is reported as a typed outcome and
// leaves all state untouched.
type PromotionService struct {
	users      promotionStudentStore
	terms      promotionTermStore
	records    promotionRecordStore
	classes    promotionClassStore
	promotions promotionApplier
	logger     *zap.Logger
}

// NewPromotionService constructs PromotionService.
func NewPromotionService(users promotionStudentStore, terms promotionTermStore, records promotionRecordStore, classes promotionClassStore, promotions promotionApplier, logger *zap.Logger) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{users: users, terms: terms, records: records, classes: classes, promotions: promotions, logger: logger}
}

// Promote attempts to advance one student to the next term. Precondition
// failures are soft: they come back as a result with a non-promoted outcome,
// not as an error. Errors are reserved for unknown students and storage
// failures.
func (s *PromotionService) Promote(ctx context.Context, studentID string) (*models.PromotionResult, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	result := &models.PromotionResult{StudentID: student.ID}

	if student.Role != models.RoleStudent {
		return s.reject(result, models.PromotionNotStudent, "user is not a student"), nil
	}
	if student.CurrentTermID == nil || *student.CurrentTermID == "" {
		return s.reject(result, models.PromotionNoCurrentTerm, "student has no current term"), nil
	}

	currentTerm, err := s.terms.FindByID(ctx, *student.CurrentTermID)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.reject(result, models.PromotionNoCurrentTerm, "current term no longer exists"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}

	record, err := s.records.FindByStudentAndTerm(ctx, student.ID, currentTerm.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.reject(result, models.PromotionNotPassed, "no academic record for current term"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic record")
	}
	if !record.Passed {
		return s.reject(result, models.PromotionNotPassed, "current term not passed"), nil
	}

	nextTerm, err := s.terms.FindByOrder(ctx, currentTerm.Order+1)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.reject(result, models.PromotionNoNextTerm, "no term follows the current one"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load next term")
	}

	enrolled, err := s.classes.ListByStudentAndTerm(ctx, student.ID, currentTerm.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollment")
	}
	switch {
	case len(enrolled) == 0:
		return s.reject(result, models.PromotionNoEnrollment, "student has no class in the current term"), nil
	case len(enrolled) > 1:
		return s.reject(result, models.PromotionAmbiguousEnrollment, fmt.Sprintf("student belongs to %d classes in the current term", len(enrolled))), nil
	}
	currentClass := enrolled[0]

	// The successor class follows the cohort of the class the student sits
	// in, not the student's own gender: cohort mismatches are advisory at
	// enrollment, and promotion keeps the student with their cohort.
	targetName := TargetClassName(currentClass.Name, nextTerm.Name, currentClass.Gender)
	applied, err := s.promotions.Apply(ctx, models.ApplyPromotionParams{
		StudentID:       student.ID,
		FromClassID:     currentClass.ID,
		TargetClassName: targetName,
		TargetClassSlug: slugify.Make(targetName),
		TargetTermID:    nextTerm.ID,
		TargetGender:    currentClass.Gender,
		SessionCount:    sessionsPerClass,
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	result.Outcome = models.PromotionPromoted
	result.FromClassID = currentClass.ID
	result.ToClassID = applied.Class.ID
	result.ToClassName = applied.Class.Name
	result.NextTermID = nextTerm.ID
	result.ClassCreated = applied.ClassCreated
	result.SessionCount = applied.SessionsAdded

	s.logger.Info("student promoted",
		zap.String("student_id", student.ID),
		zap.String("from_class_id", currentClass.ID),
		zap.String("to_class_id", applied.Class.ID),
		zap.String("next_term_id", nextTerm.ID),
		zap.Bool("class_created", applied.ClassCreated),
	)
	return result, nil
}

func (s *PromotionService) reject(result *models.PromotionResult, outcome models.PromotionOutcome, reason string) *models.PromotionResult {
	result.Outcome = outcome
	result.Reason = reason
	s.logger.Info("promotion rejected",
		zap.String("student_id", result.StudentID),
		zap.String("outcome", string(outcome)),
		zap.String("reason", reason),
	)
	return result
}

// TargetClassName derives the next term's class name from the current class:
// the base is everything before the first separator, then the next term's
// name, then the capitalized cohort gender.
func TargetClassName(currentClassName, nextTermName string, gender models.Gender) string {
	base := strings.SplitN(currentClassName, classNameSeparator, 2)[0]
	return base + classNameSeparator + nextTermName + classNameSeparator + gender.Label()
}
