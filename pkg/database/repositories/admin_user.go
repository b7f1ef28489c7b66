package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shravan4518/ppsrest/pkg/database/models"
)

type AdminUserRepository struct {
	db *gorm.DB
}

func NewAdminUserRepository(db *gorm.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

func (r *AdminUserRepository) Create(admin *models.AdminUser) error {
	return r.db.Create(admin).Error
}

func (r *AdminUserRepository) GetByID(id uuid.UUID) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.Where("id = ?", id).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminUserRepository) GetByUsername(username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.Where("username = ?", username).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminUserRepository) Update(admin *models.AdminUser) error {
	return r.db.Save(admin).Error
}

func (r *AdminUserRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.AdminUser{}, id).Error
}

func (r *AdminUserRepository) List(limit, offset int) ([]models.AdminUser, error) {
	var admins []models.AdminUser
	err := r.db.Limit(limit).Offset(offset).Find(&admins).Error
	return admins, err
}
