package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/mobility-monitor/pkg/api/routes"
)

func NewApp(mobilityRoutes *routes.MobilityRoutes) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("version", routes.APIVersion)
	webApp.Get("health", routes.Health)

	routes.MobilityRouter(webApp.Group("/mobility"), mobilityRoutes)

	return webApp
}
