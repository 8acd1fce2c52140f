package models

import (
	"time"

	"gorm.io/gorm"
)

// UserAgent binds a hired agent model to a user and the connection it
// operates through. Created by the assignment step of the connect
// callback; the connection id is a hard prerequisite.
type UserAgent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index" json:"user_id"`
	AgentModelID uint           `gorm:"index" json:"agent_model_id"`
	ConnectionID uint           `gorm:"index" json:"connection_id"`
	Name         string         `gorm:"type:varchar(150)" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	Instruction  string         `gorm:"type:text" json:"instruction"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	AgentModel AgentModel `gorm:"foreignKey:AgentModelID" json:"agent_model"`
}
