package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/JulianWeber/AgentFlow/app/repository"
)

// HandleHome renders the landing page with the hireable agent catalog.
func HandleHome(c *fiber.Ctx) error {
	agentModels, err := repository.GetGlobalFactory().GetAgentRepository().GetActiveModels()
	if err != nil {
		agentModels = nil
	}

	return c.Render("index", fiber.Map{
		"LoggedIn":  isLoggedIn(c),
		"Username":  ExtractUsername(c),
		"Flash":     flash.Get(c),
		"CSRFToken": c.Locals("csrf"),
		"Models":    agentModels,
	})
}
