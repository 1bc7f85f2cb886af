package repository

import (
	"context"
	"errors"

	"github.com/esusuhq/esusu-engine/internal/models"
	"gorm.io/gorm"
)

// GetSettings reads the single settings row, creating it with defaults on
// first use. Read fresh per operation; never cached across requests.
func (r *Repository) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := r.db.WithContext(ctx).First(&settings, "id = ?", models.SettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.Settings{
			ID:             models.SettingsRowID,
			PenaltyPercent: 10,
			TotalNumbers:   100,
		}
		if err := r.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, settings *models.Settings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
