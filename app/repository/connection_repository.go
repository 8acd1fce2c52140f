package repository

import (
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/JulianWeber/AgentFlow/app/models"
	"github.com/JulianWeber/AgentFlow/internal/pkg/apperrors"
	"github.com/JulianWeber/AgentFlow/internal/pkg/credkey"
)

// connectionRepository implements the ConnectionRepository interface
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository instance
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// ListByUserID returns every connection owned by userID, newest first,
// joined with its provider application metadata and carrying decoded
// pairs.
func (r *connectionRepository) ListByUserID(userID uint) ([]ConnectionWithPairs, error) {
	var conns []models.Connection
	err := r.db.Preload("App").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&conns).Error
	if err != nil {
		log.Printf("connection list failed for user %d: %v", userID, err)
		return nil, &apperrors.StoreError{Op: "list", Err: err}
	}

	result := make([]ConnectionWithPairs, 0, len(conns))
	for _, conn := range conns {
		result = append(result, withPairs(conn))
	}
	return result, nil
}

// GetByID retrieves a single connection with decoded pairs.
func (r *connectionRepository) GetByID(id uint) (*ConnectionWithPairs, error) {
	var conn models.Connection
	if err := r.db.Preload("App").First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		log.Printf("connection load failed for id %d: %v", id, err)
		return nil, &apperrors.StoreError{Op: "get", Err: err}
	}
	cwp := withPairs(conn)
	return &cwp, nil
}

// Create validates the inputs, inserts the record and returns it with
// decoded pairs attached.
func (r *connectionRepository) Create(userID, appID uint, name, encodedKey string) (*ConnectionWithPairs, error) {
	switch {
	case userID == 0:
		return nil, &apperrors.ValidationError{Field: "user_id", Reason: "missing"}
	case appID == 0:
		return nil, &apperrors.ValidationError{Field: "app_id", Reason: "missing"}
	case strings.TrimSpace(name) == "":
		return nil, &apperrors.ValidationError{Field: "connection_name", Reason: "missing"}
	case strings.TrimSpace(encodedKey) == "":
		return nil, &apperrors.ValidationError{Field: "connection_key", Reason: "missing"}
	}

	conn := models.Connection{
		UserID:         userID,
		AppID:          appID,
		ConnectionName: name,
		ConnectionKey:  encodedKey,
	}
	if err := r.db.Create(&conn).Error; err != nil {
		log.Printf("connection create failed for user %d: %v", userID, err)
		return nil, &apperrors.StoreError{Op: "create", Err: err}
	}
	// Reload to attach app metadata.
	_ = r.db.Preload("App").First(&conn, conn.ID).Error

	cwp := withPairs(conn)
	return &cwp, nil
}

// Update applies a partial update. Explicitly supplied fields replace
// the stored value; SheetTab instead merges into the decoded pair
// sequence, after any explicit key replacement from the same call, so
// the merge always operates on the in-flight payload.
func (r *connectionRepository) Update(id uint, upd ConnectionUpdate) (*ConnectionWithPairs, error) {
	var conn models.Connection
	if err := r.db.First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		log.Printf("connection load failed for id %d: %v", id, err)
		return nil, &apperrors.StoreError{Op: "update", Err: err}
	}

	if upd.Key != nil {
		conn.ConnectionKey = *upd.Key
	}
	if upd.SheetTab != nil {
		pairs := credkey.Merge(credkey.Decode(conn.ConnectionKey), "sheet_tab", *upd.SheetTab)
		conn.ConnectionKey = credkey.Encode(pairs)
	}
	if upd.Name != nil {
		conn.ConnectionName = *upd.Name
	}
	if upd.SheetID != nil {
		conn.SheetID = *upd.SheetID
	}
	if upd.SheetName != nil {
		conn.SheetName = *upd.SheetName
	}

	if err := r.db.Save(&conn).Error; err != nil {
		log.Printf("connection update failed for id %d: %v", id, err)
		return nil, &apperrors.StoreError{Op: "update", Err: err}
	}
	_ = r.db.Preload("App").First(&conn, conn.ID).Error

	cwp := withPairs(conn)
	return &cwp, nil
}

// Delete removes a connection. Idempotent: a missing row is not an
// error.
func (r *connectionRepository) Delete(id uint) error {
	if err := r.db.Delete(&models.Connection{}, id).Error; err != nil {
		log.Printf("connection delete failed for id %d: %v", id, err)
		return &apperrors.StoreError{Op: "delete", Err: err}
	}
	return nil
}

func withPairs(conn models.Connection) ConnectionWithPairs {
	pairs, skipped := credkey.DecodeLenient(conn.ConnectionKey)
	if skipped > 0 {
		log.Printf("connection %d: %d malformed credential entries skipped", conn.ID, skipped)
	}
	return ConnectionWithPairs{Connection: conn, Pairs: pairs}
}
