package router

import (
	"github.com/JulianWeber/AgentFlow/app/controllers"
	"github.com/JulianWeber/AgentFlow/internal/pkg/constants"
	"github.com/JulianWeber/AgentFlow/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth sign-in (account login, separate from app connections)
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Third-party app connections. The provider callback carries its own
	// signed state; CSRF cookies would break the cross-site redirect.
	app.Get(constants.ConnectCallback, controllers.HandleConnectCallback)
	app.Get(constants.ConnectError, loggedInMiddleware, controllers.HandleConnectError)
}
