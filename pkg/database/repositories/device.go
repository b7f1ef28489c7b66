package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shravan4518/ppsrest/pkg/database/models"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert records a device observation, inserting a new row or refreshing
// the attributes and last-seen time of an existing one.
func (r *DeviceRepository) Upsert(device *models.ProfiledDevice) error {
	now := time.Now()
	if device.FirstSeen.IsZero() {
		device.FirstSeen = now
	}
	device.LastSeen = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mac_address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ip_address", "hostname", "os", "category", "source", "last_seen",
		}),
	}).Create(device).Error
}

func (r *DeviceRepository) GetByMAC(mac string) (*models.ProfiledDevice, error) {
	var device models.ProfiledDevice
	err := r.db.Where("mac_address = ?", mac).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// List returns profiled devices, optionally filtered by category and
// collector source. Empty filter values match everything.
func (r *DeviceRepository) List(category, source string, limit, offset int) ([]models.ProfiledDevice, error) {
	query := r.db.Model(&models.ProfiledDevice{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var devices []models.ProfiledDevice
	err := query.Order("mac_address").Limit(limit).Offset(offset).Find(&devices).Error
	return devices, err
}

func (r *DeviceRepository) Delete(mac string) error {
	result := r.db.Where("mac_address = ?", mac).Delete(&models.ProfiledDevice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DeviceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.ProfiledDevice{}).Count(&count).Error
	return count, err
}
