package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/mobility-monitor/pkg/api/stats"
)

func (r *MobilityRoutes) getStats(c *fiber.Ctx) error {
	return c.JSON(stats.GetRecordsStats(r.Store.Snapshot()))
}
