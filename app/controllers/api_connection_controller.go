package controllers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JulianWeber/AgentFlow/app/repository"
	"github.com/JulianWeber/AgentFlow/internal/pkg/apperrors"
	"github.com/JulianWeber/AgentFlow/internal/pkg/credkey"
	"github.com/JulianWeber/AgentFlow/internal/pkg/usercontext"
)

// connectionPairDTO is one decoded credential entry.
type connectionPairDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// connectionDTO is the API shape of a connection. The encoded key text
// never appears here; only decoded pairs do.
type connectionDTO struct {
	ID             uint                `json:"id"`
	AppID          uint                `json:"app_id"`
	AppName        string              `json:"app_name"`
	ConnectionName string              `json:"connection_name"`
	Pairs          []connectionPairDTO `json:"pairs"`
	SheetID        string              `json:"sheet_id,omitempty"`
	SheetName      string              `json:"sheet_name,omitempty"`
	CreatedAt      string              `json:"created_at"`
}

func toConnectionDTO(cwp repository.ConnectionWithPairs) connectionDTO {
	dto := connectionDTO{
		ID:             cwp.ID,
		AppID:          cwp.AppID,
		AppName:        cwp.App.Name,
		ConnectionName: cwp.ConnectionName,
		SheetID:        cwp.SheetID,
		SheetName:      cwp.SheetName,
		CreatedAt:      cwp.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, p := range cwp.Pairs {
		dto.Pairs = append(dto.Pairs, connectionPairDTO(p))
	}
	return dto
}

// HandleAPIConnectionList returns the authenticated user's
// connections, newest first.
func HandleAPIConnectionList(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	conns, err := repository.GetGlobalFactory().GetConnectionRepository().ListByUserID(userID)
	if err != nil {
		return internalServerError(c)
	}

	result := make([]connectionDTO, 0, len(conns))
	for _, cwp := range conns {
		result = append(result, toConnectionDTO(cwp))
	}
	return c.JSON(fiber.Map{"connections": result})
}

// HandleAPIConnectionCreate inserts a new connection for the
// authenticated user.
func HandleAPIConnectionCreate(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var payload struct {
		AppID          uint   `json:"app_id"`
		ConnectionName string `json:"connection_name"`
		ConnectionKey  string `json:"connection_key"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "malformed request body",
		})
	}

	conn, err := repository.GetGlobalFactory().GetConnectionRepository().
		Create(userID, payload.AppID, payload.ConnectionName, payload.ConnectionKey)
	if err != nil {
		var vErr *apperrors.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "validation_failed",
				"message": vErr.Error(),
			})
		}
		return internalServerError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(toConnectionDTO(*conn))
}

// HandleAPIConnectionUpdate applies a partial update. Supplied fields
// replace the stored value; sheet_tab merges into the credential pairs
// instead.
func HandleAPIConnectionUpdate(c *fiber.Ctx) error {
	conn, repo, ok := ownedConnection(c)
	if !ok {
		return nil
	}

	var payload struct {
		Key       *string `json:"key"`
		Name      *string `json:"name"`
		SheetID   *string `json:"sheet_id"`
		SheetName *string `json:"sheet_name"`
		SheetTab  *string `json:"sheet_tab"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "malformed request body",
		})
	}

	updated, err := repo.Update(conn.ID, repository.ConnectionUpdate{
		Key:       payload.Key,
		Name:      payload.Name,
		SheetID:   payload.SheetID,
		SheetName: payload.SheetName,
		SheetTab:  payload.SheetTab,
	})
	if err != nil {
		return internalServerError(c)
	}
	return c.JSON(toConnectionDTO(*updated))
}

// HandleAPIConnectionDelete removes a connection. Deleting an absent
// row succeeds.
func HandleAPIConnectionDelete(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid connection id",
		})
	}

	repo := repository.GetGlobalFactory().GetConnectionRepository()
	conn, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Idempotent delete.
			return c.JSON(fiber.Map{"message": "connection deleted"})
		}
		return internalServerError(c)
	}
	if conn.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "connection not found",
		})
	}

	if err := repo.Delete(uint(id)); err != nil {
		return internalServerError(c)
	}
	return c.JSON(fiber.Map{"message": "connection deleted"})
}

// HandleAPIConnectionRefresh exchanges the stored refresh token for a
// fresh access token and updates the persisted credential in place.
// If the provider omits a new refresh token the previous one is kept.
func HandleAPIConnectionRefresh(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var payload struct {
		RefreshToken string `json:"refreshToken"`
		AccessToken  string `json:"accessToken"`
		ConnectionID uint   `json:"connectionId"`
	}
	if err := c.BodyParser(&payload); err != nil || payload.RefreshToken == "" || payload.ConnectionID == 0 {
		return internalServerError(c)
	}

	repo := repository.GetGlobalFactory().GetConnectionRepository()
	conn, err := repo.GetByID(payload.ConnectionID)
	if err != nil || conn.UserID != userID {
		return internalServerError(c)
	}

	pair, err := connectController.client.Refresh(c.Context(), payload.RefreshToken)
	if err != nil {
		log.Printf("connect: refresh failed for connection %d: %v", payload.ConnectionID, err)
		return internalServerError(c)
	}

	pairs := credkey.Merge(conn.Pairs, "access_token", pair.AccessToken)
	if pair.ExpiresIn > 0 {
		pairs = credkey.Merge(pairs, "expires_in", strconv.FormatInt(pair.ExpiresIn, 10))
	}
	if pair.RefreshToken != "" {
		// Provider rotated the refresh token.
		pairs = credkey.Merge(pairs, "refresh_token", pair.RefreshToken)
	}

	encoded := credkey.Encode(pairs)
	if _, err := repo.Update(conn.ID, repository.ConnectionUpdate{Key: &encoded}); err != nil {
		return internalServerError(c)
	}

	return c.JSON(fiber.Map{
		"message": "Access token refreshed",
		"result":  pair.AccessToken,
	})
}

// ownedConnection resolves the :id route param to a connection owned
// by the authenticated user, writing the error response itself when it
// cannot.
func ownedConnection(c *fiber.Ctx) (*repository.ConnectionWithPairs, repository.ConnectionRepository, bool) {
	userID := usercontext.GetUserID(c)
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid connection id",
		})
		return nil, nil, false
	}

	repo := repository.GetGlobalFactory().GetConnectionRepository()
	conn, err := repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "connection not found",
			})
		} else {
			_ = internalServerError(c)
		}
		return nil, nil, false
	}
	if conn.UserID != userID {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "connection not found",
		})
		return nil, nil, false
	}
	return conn, repo, true
}

func internalServerError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
