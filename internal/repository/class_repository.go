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

// ClassRepository manages persistence for classes and their memberships.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `c.id, c.name, c.gender, c.teacher_id, c.term_id, c.slug, c.created_at, c.updated_at`

// List returns classes matching the provided filters with joined details.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := "FROM classes c JOIN users u ON u.id = c.teacher_id JOIN terms t ON t.id = c.term_id"
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("c.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Gender != "" {
		conditions = append(conditions, fmt.Sprintf("c.gender = $%d", len(args)+1))
		args = append(args, filter.Gender)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "c.name",
		"created_at": "c.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, u.first_name || ' ' || u.last_name AS teacher_name, t.name AS term_name,
        (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) AS student_count
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, classColumns, base, column, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindBySlug fetches a class by slug.
func (r *ClassRepository) FindBySlug(ctx context.Context, slug string) (*models.Class, error) {
	const query = `SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at FROM classes WHERE slug = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by slug: %w", err)
	}
	return &class, nil
}

// FindByKey fetches a class by its (name, term, gender) identity. Promotion
// uses this key for find-or-create.
func (r *ClassRepository) FindByKey(ctx context.Context, name, termID string, gender models.Gender) (*models.Class, error) {
	const query = `SELECT id, name, gender, teacher_id, term_id, slug, created_at, updated_at FROM classes WHERE name = $1 AND term_id = $2 AND gender = $3 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, name, termID, gender); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by key: %w", err)
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, gender, teacher_id, term_id, slug, created_at, updated_at)
        VALUES (:id, :name, :gender, :teacher_id, :term_id, :slug, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// ListByTeacher returns the classes taught by one teacher.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.first_name || ' ' || u.last_name AS teacher_name, t.name AS term_name,
        (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) AS student_count
        FROM classes c JOIN users u ON u.id = c.teacher_id JOIN terms t ON t.id = c.term_id
        WHERE c.teacher_id = $1 ORDER BY c.created_at DESC`, classColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return classes, nil
}

// ListByStudentAndTerm returns the classes a student belongs to within a
// term. Promotion expects exactly one; callers decide how to treat more.
func (r *ClassRepository) ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.Class, error) {
	const query = `SELECT c.id, c.name, c.gender, c.teacher_id, c.term_id, c.slug, c.created_at, c.updated_at
        FROM classes c JOIN class_students cs ON cs.class_id = c.id
        WHERE cs.student_id = $1 AND c.term_id = $2 ORDER BY c.created_at ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("list classes by student and term: %w", err)
	}
	return classes, nil
}

// ListByStudent returns every class a student has ever belonged to.
func (r *ClassRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.first_name || ' ' || u.last_name AS teacher_name, t.name AS term_name,
        (SELECT COUNT(*) FROM class_students cs2 WHERE cs2.class_id = c.id) AS student_count
        FROM classes c JOIN class_students cs ON cs.class_id = c.id
        JOIN users u ON u.id = c.teacher_id JOIN terms t ON t.id = c.term_id
        WHERE cs.student_id = $1 ORDER BY t.term_order ASC`, classColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, studentID); err != nil {
		return nil, fmt.Errorf("list classes by student: %w", err)
	}
	return classes, nil
}

// AddStudent enrolls a student into a class. Re-enrolling is a no-op.
func (r *ClassRepository) AddStudent(ctx context.Context, classID, studentID string) error {
	const query = `INSERT INTO class_students (class_id, student_id, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (class_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, classID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add student to class: %w", err)
	}
	return nil
}

// RemoveStudent withdraws a student from a class.
func (r *ClassRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	const query = `DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, classID, studentID); err != nil {
		return fmt.Errorf("remove student from class: %w", err)
	}
	return nil
}

// ListStudents returns the roster of a class.
func (r *ClassRepository) ListStudents(ctx context.Context, classID string) ([]models.User, error) {
	const query = `SELECT u.id, u.national_id, u.first_name, u.last_name, u.password_hash, u.role, u.gender, u.current_term_id, u.parent_phone, u.slug, u.active, u.last_login, u.created_at, u.updated_at
        FROM users u JOIN class_students cs ON cs.student_id = u.id
        WHERE cs.class_id = $1 ORDER BY u.last_name, u.first_name`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}
