package router

import (
	"github.com/JulianWeber/AgentFlow/app/controllers"
	"github.com/JulianWeber/AgentFlow/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes, session-bound
	v1 := api.Group("/v1", middleware.RequireAPISessionAuth)
	v1.Get("/connections", controllers.HandleAPIConnectionList)
	v1.Post("/connections", controllers.HandleAPIConnectionCreate)
	v1.Put("/connections/:id", controllers.HandleAPIConnectionUpdate)
	v1.Delete("/connections/:id", controllers.HandleAPIConnectionDelete)
	v1.Post("/connections/refresh", controllers.HandleAPIConnectionRefresh)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
