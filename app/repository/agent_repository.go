package repository

import (
	"github.com/JulianWeber/AgentFlow/app/models"
	"gorm.io/gorm"
)

// agentRepository implements the AgentRepository interface
type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository creates a new agent repository instance
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

// GetModelByID retrieves an agent model from the catalog
func (r *agentRepository) GetModelByID(id uint) (*models.AgentModel, error) {
	var model models.AgentModel
	if err := r.db.First(&model, id).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

// GetActiveModels retrieves all hireable agent models
func (r *agentRepository) GetActiveModels() ([]models.AgentModel, error) {
	var agentModels []models.AgentModel
	err := r.db.Where("is_active = ?", true).Order("name ASC").Find(&agentModels).Error
	return agentModels, err
}

// CreateAssignment persists a user-agent assignment
func (r *agentRepository) CreateAssignment(ua *models.UserAgent) error {
	return r.db.Create(ua).Error
}

// ListAssignmentsByUserID returns the user's assignments, newest first
func (r *agentRepository) ListAssignmentsByUserID(userID uint) ([]models.UserAgent, error) {
	var assignments []models.UserAgent
	err := r.db.Preload("AgentModel").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assignments).Error
	return assignments, err
}

// DeleteAssignment soft deletes a user-agent assignment
func (r *agentRepository) DeleteAssignment(id uint) error {
	return r.db.Delete(&models.UserAgent{}, id).Error
}
