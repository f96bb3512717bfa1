package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hamrah-edu/school-portal-api/internal/models"
)

// SiteSettingsRepository manages the single-row site configuration.
type SiteSettingsRepository struct {
	db *sqlx.DB
}

// NewSiteSettingsRepository constructs a SiteSettingsRepository.
func NewSiteSettingsRepository(db *sqlx.DB) *SiteSettingsRepository {
	return &SiteSettingsRepository{db: db}
}

// Get returns the current settings row. sql.ErrNoRows means the portal has
// never been configured.
func (r *SiteSettingsRepository) Get(ctx context.Context) (*models.SiteSettings, error) {
	const query = `SELECT id, site_name, logo_path, about_us, rules, address, phone_number, email, updated_at
        FROM site_settings ORDER BY updated_at DESC LIMIT 1`
	var settings models.SiteSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get site settings: %w", err)
	}
	return &settings, nil
}

// Upsert writes the settings row, creating it on first save.
func (r *SiteSettingsRepository) Upsert(ctx context.Context, settings *models.SiteSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO site_settings (id, site_name, logo_path, about_us, rules, address, phone_number, email, updated_at)
        VALUES (:id, :site_name, :logo_path, :about_us, :rules, :address, :phone_number, :email, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
        site_name = EXCLUDED.site_name, logo_path = EXCLUDED.logo_path, about_us = EXCLUDED.about_us,
        rules = EXCLUDED.rules, address = EXCLUDED.address, phone_number = EXCLUDED.phone_number,
        email = EXCLUDED.email, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert site settings: %w", err)
	}
	return nil
}
