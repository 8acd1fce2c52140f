package models

import "time"

// AgentModel is a catalog entry users can hire. Assigning one to a
// user produces a UserAgent bound to a connection.
type AgentModel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(150)" json:"name"`
	Slug        string    `gorm:"uniqueIndex;type:varchar(100)" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	AppID       uint      `gorm:"index" json:"app_id"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
