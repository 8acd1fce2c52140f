package router

import (
	"github.com/JulianWeber/AgentFlow/app/controllers"
	"github.com/JulianWeber/AgentFlow/internal/pkg/config"
	"github.com/JulianWeber/AgentFlow/internal/pkg/middleware"
	"github.com/JulianWeber/AgentFlow/internal/pkg/oauth"
	"github.com/JulianWeber/AgentFlow/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
	cfg *config.Config
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize connect controller with the startup configuration
	controllers.InitializeConnectController(h.cfg)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(cfg *config.Config) *HttpRouter {
	return &HttpRouter{cfg: cfg}
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context
	// All user information is available via usercontext.GetUserContext(c)
	return c.Next()
}
