package routes

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

type bounds struct {
	BottomLeft transport.TransportLocation
	TopRight   transport.TransportLocation
}

func (b *bounds) Contains(location transport.TransportLocation) bool {
	return location.Longitude >= b.BottomLeft.Longitude && location.Longitude <= b.TopRight.Longitude &&
		location.Latitude >= b.BottomLeft.Latitude && location.Latitude <= b.TopRight.Latitude
}

// getBoundsQuery parses the optional bounds=minLon,minLat,maxLon,maxLat query, nil when absent
func getBoundsQuery(c *fiber.Ctx) (*bounds, error) {
	boundsQuery := c.Query("bounds")

	if boundsQuery == "" {
		return nil, nil
	}

	boundsSplit := strings.Split(boundsQuery, ",")
	if len(boundsSplit) != 4 {
		return nil, errors.New("Bounds must contain 4 co-ordinates")
	}

	var coordinates [4]float64
	for i, value := range boundsSplit {
		coordinate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errors.New("Bounds co-ordinates must be numbers")
		}
		coordinates[i] = coordinate
	}

	return &bounds{
		BottomLeft: transport.TransportLocation{Longitude: coordinates[0], Latitude: coordinates[1]},
		TopRight:   transport.TransportLocation{Longitude: coordinates[2], Latitude: coordinates[3]},
	}, nil
}

func getSheriffGroups(c *fiber.Ctx) []string {
	if c.QueryBool("detail", false) {
		return []string{"basic", "detailed"}
	}

	return []string{"basic"}
}

func sendReduced(c *fiber.Ctx, groups []string, data interface{}) error {
	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, data)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce response",
		})
	}

	return c.JSON(reduced)
}

func sendError(c *fiber.Ctx, status int, message string) error {
	c.SendStatus(status)
	return c.JSON(fiber.Map{
		"error": message,
	})
}
