// Package agents binds hired agent models to users. The connect
// callback invokes it after a credential has been persisted; the
// connection id is a required foreign reference.
package agents

import (
	"fmt"

	"github.com/JulianWeber/AgentFlow/app/models"
	"github.com/JulianWeber/AgentFlow/app/repository"
)

// Assigner assigns an agent model to a user, bound to a connection.
type Assigner interface {
	Assign(userID, modelID, connectionID uint, name, description, instruction string) (*models.UserAgent, error)
}

// Service is the gorm-backed Assigner.
type Service struct {
	repo repository.AgentRepository
}

func NewService(repo repository.AgentRepository) *Service {
	return &Service{repo: repo}
}

// Assign creates the user-agent record. The agent model must exist and
// be active; the assignment name falls back to the catalog name when
// the caller supplies none.
func (s *Service) Assign(userID, modelID, connectionID uint, name, description, instruction string) (*models.UserAgent, error) {
	if userID == 0 || modelID == 0 || connectionID == 0 {
		return nil, fmt.Errorf("agents: user, model and connection ids are required")
	}

	model, err := s.repo.GetModelByID(modelID)
	if err != nil {
		return nil, fmt.Errorf("agents: model %d not found: %w", modelID, err)
	}
	if !model.IsActive {
		return nil, fmt.Errorf("agents: model %q is not available", model.Slug)
	}

	if name == "" {
		name = model.Name
	}
	ua := &models.UserAgent{
		UserID:       userID,
		AgentModelID: modelID,
		ConnectionID: connectionID,
		Name:         name,
		Description:  description,
		Instruction:  instruction,
	}
	if err := s.repo.CreateAssignment(ua); err != nil {
		return nil, fmt.Errorf("agents: assignment failed: %w", err)
	}
	return ua, nil
}
