package models

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/JulianWeber/AgentFlow/internal/pkg/credkey"
)

// Connection is a persisted grant of delegated access to an external
// provider application, owned by a single user. ConnectionKey holds
// the encoded credential pairs; it is rewritten wholesale on every
// update, never patched field by field.
type Connection struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"index" json:"user_id" validate:"required"`
	AppID          uint           `gorm:"index" json:"app_id" validate:"required"`
	ConnectionName string         `gorm:"type:varchar(150)" json:"connection_name" validate:"required,max=150"`
	ConnectionKey  string         `gorm:"type:text" json:"-" validate:"required"`
	SheetID        string         `gorm:"type:varchar(191);default:null" json:"sheet_id"`
	SheetName      string         `gorm:"type:varchar(191);default:null" json:"sheet_name"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	App App `gorm:"foreignKey:AppID" json:"app"`
}

func (c *Connection) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// Pairs decodes the stored connection key. The decode is lenient:
// malformed historical rows yield whatever entries survive.
func (c *Connection) Pairs() []credkey.Pair {
	return credkey.Decode(c.ConnectionKey)
}

// CredentialsValid reports whether the decoded pairs satisfy the
// invariant a usable connection must hold: an access_token is present,
// and expires_in, if present, is numeric.
func (c *Connection) CredentialsValid() bool {
	pairs := c.Pairs()
	if _, ok := credkey.Get(pairs, "access_token"); !ok {
		return false
	}
	if exp, ok := credkey.Get(pairs, "expires_in"); ok {
		if _, err := strconv.ParseInt(exp, 10, 64); err != nil {
			return false
		}
	}
	return true
}
