package router

import (
	"strings"
	"time"

	"github.com/JulianWeber/AgentFlow/app/controllers"
	"github.com/JulianWeber/AgentFlow/internal/pkg/constants"
	"github.com/JulianWeber/AgentFlow/internal/pkg/env"
	"github.com/JulianWeber/AgentFlow/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get(constants.PublicRoute, loggedInMiddleware, controllers.HandleHome)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)

	// Agent overview; the connect flow redirects back here.
	group.Get(constants.AgentsRoute, middleware.RequireAuth, controllers.HandleAgents)

	// Hire form posts here to begin the consent round trip.
	group.Post(constants.ConnectStart, middleware.RequireAuth, controllers.HandleConnectStart)
	group.Get(constants.ConnectStart, middleware.RequireAuth, controllers.HandleConnectStart)
}
