package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/JulianWeber/AgentFlow/app/repository"
	"github.com/JulianWeber/AgentFlow/internal/pkg/usercontext"
)

// HandleAgents renders the user's hired agents. It is also the landing
// page of the connect round trip, so it surfaces the oauth_success /
// oauth_error flags attached by the callback redirect.
func HandleAgents(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	assignments, err := repository.GetGlobalFactory().GetAgentRepository().ListAssignmentsByUserID(userID)
	if err != nil {
		assignments = nil
	}

	return c.Render("agents", fiber.Map{
		"LoggedIn":     true,
		"Username":     ExtractUsername(c),
		"Flash":        flash.Get(c),
		"CSRFToken":    c.Locals("csrf"),
		"Assignments":  assignments,
		"Model":        c.Query("model"),
		"OAuthSuccess": c.Query("oauth_success"),
		"OAuthError":   c.Query("oauth_error"),
	})
}
