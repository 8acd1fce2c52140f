package repository

import (
	"github.com/JulianWeber/AgentFlow/app/models"
	"gorm.io/gorm"
)

// appRepository implements the AppRepository interface
type appRepository struct {
	db *gorm.DB
}

// NewAppRepository creates a new app repository instance
func NewAppRepository(db *gorm.DB) AppRepository {
	return &appRepository{db: db}
}

// GetByID retrieves a provider application by its ID
func (r *appRepository) GetByID(id uint) (*models.App, error) {
	var app models.App
	if err := r.db.First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// GetBySlug retrieves a provider application by its slug
func (r *appRepository) GetBySlug(slug string) (*models.App, error) {
	var app models.App
	if err := r.db.Where("slug = ?", slug).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// GetActive retrieves all active provider applications
func (r *appRepository) GetActive() ([]models.App, error) {
	var apps []models.App
	err := r.db.Where("is_active = ?", true).Order("name ASC").Find(&apps).Error
	return apps, err
}
