package repository

import (
	"github.com/JulianWeber/AgentFlow/app/models"
	"github.com/JulianWeber/AgentFlow/internal/pkg/credkey"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// ConnectionRepository is the only component permitted to read or
// write persisted connections. Every record it returns carries the
// freshly decoded pair sequence; raw encoded text never leaves it.
type ConnectionRepository interface {
	ListByUserID(userID uint) ([]ConnectionWithPairs, error)
	GetByID(id uint) (*ConnectionWithPairs, error)
	Create(userID, appID uint, name, encodedKey string) (*ConnectionWithPairs, error)
	Update(id uint, upd ConnectionUpdate) (*ConnectionWithPairs, error)
	Delete(id uint) error
}

// AppRepository defines lookups over the provider application registry
type AppRepository interface {
	GetByID(id uint) (*models.App, error)
	GetBySlug(slug string) (*models.App, error)
	GetActive() ([]models.App, error)
}

// AgentRepository defines operations over the agent catalog and
// user-agent assignments
type AgentRepository interface {
	GetModelByID(id uint) (*models.AgentModel, error)
	GetActiveModels() ([]models.AgentModel, error)
	CreateAssignment(ua *models.UserAgent) error
	ListAssignmentsByUserID(userID uint) ([]models.UserAgent, error)
	DeleteAssignment(id uint) error
}

// ConnectionWithPairs augments a stored connection with its decoded
// credential pairs.
type ConnectionWithPairs struct {
	models.Connection
	Pairs []credkey.Pair
}

// ConnectionUpdate carries the partial-update payload for a
// connection. Nil fields are untouched. SheetTab is special: it is
// merged into the decoded pair sequence instead of replacing the whole
// credential.
type ConnectionUpdate struct {
	Key       *string
	Name      *string
	SheetID   *string
	SheetName *string
	SheetTab  *string
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Connection ConnectionRepository
	App        AppRepository
	Agent      AgentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Connection: NewConnectionRepository(db),
		App:        NewAppRepository(db),
		Agent:      NewAgentRepository(db),
	}
}
