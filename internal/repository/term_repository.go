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

// TermRepository manages persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs a TermRepository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `id, name, term_order, slug, created_at, updated_at`

// List returns terms ordered by their position in the progression.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s FROM terms ORDER BY term_order %s LIMIT %d OFFSET %d", termColumns, order, size, offset)
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM terms"); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}
	return terms, total, nil
}

// FindByID fetches a term by identifier.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE id = $1 LIMIT 1`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find term by id: %w", err)
	}
	return &term, nil
}

// FindBySlug fetches a term by slug.
func (r *TermRepository) FindBySlug(ctx context.Context, slug string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE slug = $1 LIMIT 1`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find term by slug: %w", err)
	}
	return &term, nil
}

// FindByOrder fetches the term at an exact position. Promotion uses this to
// look up the successor term; sql.ErrNoRows means the progression ends here.
// When several terms share the position the earliest-created one wins.
func (r *TermRepository) FindByOrder(ctx context.Context, order int) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE term_order = $1 ORDER BY created_at ASC LIMIT 1`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, order); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find term by order: %w", err)
	}
	return &term, nil
}

// Create inserts a new term.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = now
	const query = `INSERT INTO terms (id, name, term_order, slug, created_at, updated_at)
        VALUES (:id, :name, :term_order, :slug, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}
