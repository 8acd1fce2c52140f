package models

import "time"

// App is a registry row for an external provider application users can
// connect, e.g. the Google Sheets integration. Display metadata from
// here is joined into connection listings.
type App struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150)" json:"name"`
	Slug      string    `gorm:"uniqueIndex;type:varchar(100)" json:"slug"`
	IconURL   string    `gorm:"type:varchar(255);default:null" json:"icon_url"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	// APP_SLUG_GOOGLE_SHEETS identifies the built-in spreadsheet
	// provider application.
	APP_SLUG_GOOGLE_SHEETS = "google-sheets"
)
