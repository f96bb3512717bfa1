package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hamrah-edu/school-portal-api/internal/models"
)

// AttendanceRepository manages class sessions and per-student records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// SeedSessions inserts numbered sessions 1..count for a class in a single
// statement.
func (r *AttendanceRepository) SeedSessions(ctx context.Context, classID string, count int) error {
	if count <= 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]string, 0, count)
	args := make([]interface{}, 0, count*4)
	for n := 1; n <= count; n++ {
		base := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, uuid.NewString(), classID, n, now)
	}
	query := fmt.Sprintf("INSERT INTO attendance_sessions (id, class_id, session_number, created_at) VALUES %s", strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seed sessions: %w", err)
	}
	return nil
}

// ListSessionsByClass returns a class's sessions in numeric order.
func (r *AttendanceRepository) ListSessionsByClass(ctx context.Context, classID string) ([]models.AttendanceSession, error) {
	const query = `SELECT id, class_id, session_number, created_at FROM attendance_sessions WHERE class_id = $1 ORDER BY session_number ASC`
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindSession fetches a session by identifier.
func (r *AttendanceRepository) FindSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	const query = `SELECT id, class_id, session_number, created_at FROM attendance_sessions WHERE id = $1 LIMIT 1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// UpsertRecord writes a student's presence for a session, replacing any
// earlier mark.
func (r *AttendanceRepository) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, session_id, student_id, present, created_at, updated_at)
        VALUES (:id, :session_id, :student_id, :present, :created_at, :updated_at)
        ON CONFLICT (session_id, student_id) DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}
	return nil
}

// SessionRoll returns each enrolled student with their recorded presence for
// a session. Students without a record show as absent.
func (r *AttendanceRepository) SessionRoll(ctx context.Context, sessionID, classID string) ([]models.SessionRollRow, error) {
	const query = `SELECT u.id AS student_id, u.first_name || ' ' || u.last_name AS student_name,
        COALESCE(ar.present, FALSE) AS present
        FROM users u
        JOIN class_students cs ON cs.student_id = u.id AND cs.class_id = $2
        LEFT JOIN attendance_records ar ON ar.student_id = u.id AND ar.session_id = $1
        ORDER BY u.last_name, u.first_name`
	var rows []models.SessionRollRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID, classID); err != nil {
		return nil, fmt.Errorf("session roll: %w", err)
	}
	return rows, nil
}

// ListByStudentAndClass returns a student's presence across all sessions of
// one class, in session order.
func (r *AttendanceRepository) ListByStudentAndClass(ctx context.Context, studentID, classID string) ([]models.StudentSessionRow, error) {
	const query = `SELECT s.id AS session_id, s.session_number, COALESCE(ar.present, FALSE) AS present
        FROM attendance_sessions s
        LEFT JOIN attendance_records ar ON ar.session_id = s.id AND ar.student_id = $1
        WHERE s.class_id = $2 ORDER BY s.session_number ASC`
	var rows []models.StudentSessionRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return rows, nil
}
