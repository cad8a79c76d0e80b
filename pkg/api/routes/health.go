package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/redis_client"
)

func Health(c *fiber.Ctx) error {
	if err := redis_client.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("Redis health check failed")

		return sendError(c, fiber.StatusServiceUnavailable, "redis unavailable")
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
