package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shravan4518/ppsrest/pkg/database/models"
)

type ProfilerConfigRepository struct {
	db *gorm.DB
}

func NewProfilerConfigRepository(db *gorm.DB) *ProfilerConfigRepository {
	return &ProfilerConfigRepository{db: db}
}

// Get returns the appliance's Profiler configuration, creating the
// factory default row on first access.
func (r *ProfilerConfigRepository) Get() (*models.ProfilerConfig, error) {
	var cfg models.ProfilerConfig
	err := r.db.First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	defaults := models.DefaultProfilerConfig()
	if err := r.db.Create(defaults).Error; err != nil {
		return nil, err
	}
	return defaults, nil
}

// Update replaces the Profiler configuration, preserving the singleton
// row's identity.
func (r *ProfilerConfigRepository) Update(cfg *models.ProfilerConfig) error {
	current, err := r.Get()
	if err != nil {
		return err
	}
	cfg.ID = current.ID
	return r.db.Save(cfg).Error
}

// Reset restores the factory default configuration.
func (r *ProfilerConfigRepository) Reset() (*models.ProfilerConfig, error) {
	defaults := models.DefaultProfilerConfig()
	if err := r.Update(defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}
