package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetConnectionRepository returns the connection repository instance
func (f *Factory) GetConnectionRepository() ConnectionRepository {
	return f.GetRepositories().Connection
}

// GetAppRepository returns the app repository instance
func (f *Factory) GetAppRepository() AppRepository {
	return f.GetRepositories().App
}

// GetAgentRepository returns the agent repository instance
func (f *Factory) GetAgentRepository() AgentRepository {
	return f.GetRepositories().Agent
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// SetRepositoriesForTesting replaces the global repositories with the
// given set. Test use only.
func SetRepositoriesForTesting(repos *Repositories) {
	f := &Factory{repos: repos}
	f.once.Do(func() {})
	factoryOnce.Do(func() {})
	globalFactory = f
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
