package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timeclock_backend/internal/models"
)

// SettingsRepository stores key-value application settings; the labor
// rules the accounting engine applies live here.
type SettingsRepository interface {
	GetByKey(key string) (*models.ApplicationSetting, error)
	Upsert(executor SQLExecutor, setting *models.ApplicationSetting) (*models.ApplicationSetting, error)
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByKey(key string) (*models.ApplicationSetting, error) {
	setting := &models.ApplicationSetting{}
	query := `SELECT id, setting_key, setting_value, description, created_at, updated_at
	          FROM application_settings
	          WHERE setting_key = $1`

	err := r.db.QueryRow(query, key).Scan(
		&setting.ID, &setting.SettingKey, &setting.SettingValue,
		&setting.Description, &setting.CreatedAt, &setting.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting setting %s: %v", ErrDatabaseError, key, err)
	}
	return setting, nil
}

func (r *settingsRepository) Upsert(executor SQLExecutor, setting *models.ApplicationSetting) (*models.ApplicationSetting, error) {
	query := `INSERT INTO application_settings (setting_key, setting_value, description, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)
	          ON CONFLICT (setting_key) DO UPDATE
	          SET setting_value = EXCLUDED.setting_value,
	              description = COALESCE(EXCLUDED.description, application_settings.description),
	              updated_at = EXCLUDED.updated_at
	          RETURNING id, created_at, updated_at`

	err := executor.QueryRow(query,
		setting.SettingKey, setting.SettingValue, setting.Description, time.Now(),
	).Scan(&setting.ID, &setting.CreatedAt, &setting.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: upserting setting %s: %v", ErrDatabaseError, setting.SettingKey, err)
	}
	return setting, nil
}
