package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

type attendanceStore interface {
	ListSessionsByClass(ctx context.Context, classID string) ([]models.AttendanceSession, error)
	FindSession(ctx context.Context, id string) (*models.AttendanceSession, error)
	UpsertRecord(ctx context.Context, record *models.AttendanceRecord) error
	SessionRoll(ctx context.Context, sessionID, classID string) ([]models.SessionRollRow, error)
	ListByStudentAndClass(ctx context.Context, studentID, classID string) ([]models.StudentSessionRow, error)
}

type attendanceClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// AttendanceEntry is one student's mark in a take-attendance submission.
type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
}

// TakeAttendanceRequest records presence for a whole session at once.
type TakeAttendanceRequest struct {
	SessionID string            `json:"session_id" validate:"required"`
	Entries   []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`

	// TeacherID scopes the write to the teacher who owns the class.
	TeacherID string `json:"-"`
}

// AttendanceService records and reads per-session presence.
type AttendanceService struct {
	attendance attendanceStore
	classes    attendanceClassStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceStore, classes attendanceClassStore, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, classes: classes, validator: validate, logger: logger}
}

// Take upserts presence marks for a session. Re-submitting replaces earlier
// marks for the same students.
func (s *AttendanceService) Take(ctx context.Context, req TakeAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	session, class, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if req.TeacherID != "" && class.TeacherID != req.TeacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "session belongs to another teacher's class")
	}
	for _, entry := range req.Entries {
		record := &models.AttendanceRecord{SessionID: session.ID, StudentID: entry.StudentID, Present: entry.Present}
		if err := s.attendance.UpsertRecord(ctx, record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance record")
		}
	}
	s.logger.Info("attendance recorded",
		zap.String("session_id", session.ID),
		zap.String("class_id", class.ID),
		zap.Int("entries", len(req.Entries)),
	)
	return nil
}

// Roll returns the enrolled students of the session's class with their
// recorded presence. Unmarked students default to absent.
func (s *AttendanceService) Roll(ctx context.Context, sessionID, teacherID string) ([]models.SessionRollRow, error) {
	session, class, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if teacherID != "" && class.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another teacher's class")
	}
	roll, err := s.attendance.SessionRoll(ctx, session.ID, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session roll")
	}
	return roll, nil
}

// ClassSessions lists a class's sessions in numeric order.
func (s *AttendanceService) ClassSessions(ctx context.Context, classID string) ([]models.AttendanceSession, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	sessions, err := s.attendance.ListSessionsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// StudentAttendance returns one student's presence per session of a class.
func (s *AttendanceService) StudentAttendance(ctx context.Context, studentID, classID string) ([]models.StudentSessionRow, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	rows, err := s.attendance.ListByStudentAndClass(ctx, studentID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student attendance")
	}
	return rows, nil
}

func (s *AttendanceService) loadSession(ctx context.Context, sessionID string) (*models.AttendanceSession, *models.Class, error) {
	session, err := s.attendance.FindSession(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	class, err := s.classes.FindByID(ctx, session.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return session, class, nil
}
