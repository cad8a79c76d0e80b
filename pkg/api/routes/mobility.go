package routes

import (
	"bytes"
	"image/png"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/location"
	"github.com/travigo/mobility-monitor/pkg/monitor"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

type RefreshTrigger interface {
	Trigger()
}

type MobilityRoutes struct {
	Store          *monitor.Store
	DeviceLocation *location.DeviceLocation
	Refresher      RefreshTrigger

	// TimeLocation is used for clock time departure labels
	TimeLocation *time.Location
	Now          func() time.Time
}

func MobilityRouter(router fiber.Router, routes *MobilityRoutes) {
	router.Get("/", routes.getDashboard)
	router.Get("/categories/:category", routes.getCategory)
	router.Get("/categories/:category/options/:option/deeplink", routes.getDeeplink)
	router.Get("/markers", routes.listMarkers)
	router.Get("/markers/:identifier/icon", routes.getMarkerIcon)
	router.Put("/location", routes.putLocation)
	router.Post("/refresh", routes.postRefresh)
	router.Get("/stats", routes.getStats)

	router.Use("/ws", upgradeWebsocket)
	router.Get("/ws", routes.streamSnapshots())
}

func (r *MobilityRoutes) renderer() viewRenderer {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	renderer := viewRenderer{now: now(), location: r.TimeLocation}
	if userLocation, found := r.Store.UserLocation(); found {
		renderer.userLocation = &userLocation
	}

	return renderer
}

func (r *MobilityRoutes) getDashboard(c *fiber.Ctx) error {
	view := r.renderer().dashboard(r.Store.Snapshot())

	return sendReduced(c, getSheriffGroups(c), view)
}

func (r *MobilityRoutes) getCategory(c *fiber.Ctx) error {
	category, ok := transport.ParseCategory(c.Params("category"))
	if !ok {
		return sendError(c, fiber.StatusNotFound, "Unknown category")
	}

	state, ok := r.Store.Category(category)
	if !ok {
		return sendError(c, fiber.StatusNotFound, "Unknown category")
	}

	if filterQuery := c.Query("filter"); filterQuery != "" {
		filter, err := transport.CompileOptionFilter(filterQuery)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, err.Error())
		}

		state.Entries, err = filter.FilterEntries(state.Entries)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, err.Error())
		}

		log.Debug().Str("category", string(category)).Str("filter", filter.String()).Msg("Filtered category entries")
	}

	return sendReduced(c, getSheriffGroups(c), r.renderer().category(state))
}

func (r *MobilityRoutes) getDeeplink(c *fiber.Ctx) error {
	category, ok := transport.ParseCategory(c.Params("category"))
	if !ok {
		return sendError(c, fiber.StatusNotFound, "Unknown category")
	}

	state, _ := r.Store.Category(category)
	optionIdentifier := c.Params("option")

	for _, entry := range state.Entries {
		for _, option := range entry.AvailableOptions {
			if option.ID != optionIdentifier {
				continue
			}

			result := option.ResolveDeeplink(c.Query("platform"))

			switch {
			case result.OK():
				c.Status(fiber.StatusOK)
			case result.Status == transport.DeeplinkStatusMissing:
				c.Status(fiber.StatusNotFound)
			case result.Status == transport.DeeplinkStatusInvalid:
				c.Status(fiber.StatusUnprocessableEntity)
			default:
				c.Status(fiber.StatusBadRequest)
			}

			return c.JSON(result)
		}
	}

	return sendError(c, fiber.StatusNotFound, "Could not find option matching the given identifier")
}

func (r *MobilityRoutes) listMarkers(c *fiber.Ctx) error {
	boundsQuery, err := getBoundsQuery(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	markers := []markerView{}
	for _, marker := range r.Store.Markers() {
		if boundsQuery != nil && !boundsQuery.Contains(marker.Position) {
			continue
		}

		markers = append(markers, newMarkerView(marker))
	}

	return sendReduced(c, []string{"basic"}, markers)
}

func (r *MobilityRoutes) getMarkerIcon(c *fiber.Ctx) error {
	marker, ok := r.Store.Marker(c.Params("identifier"))
	if !ok || marker.Icon == nil {
		return sendError(c, fiber.StatusNotFound, "Could not find marker matching the given identifier")
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, marker.Icon); err != nil {
		log.Error().Err(err).Str("marker", marker.ID).Msg("Failed to encode marker icon")

		return sendError(c, fiber.StatusInternalServerError, "Could not encode marker icon")
	}

	c.Type("png")
	return c.Send(buffer.Bytes())
}

func (r *MobilityRoutes) putLocation(c *fiber.Ctx) error {
	var coords transport.TransportLocation
	if err := c.BodyParser(&coords); err != nil {
		return sendError(c, fiber.StatusBadRequest, "Body must contain lat and lon")
	}

	if err := r.DeviceLocation.Update(coords); err != nil {
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	r.Refresher.Trigger()

	c.Status(fiber.StatusAccepted)
	return c.JSON(fiber.Map{
		"status":   "refresh scheduled",
		"location": coords,
	})
}

func (r *MobilityRoutes) postRefresh(c *fiber.Ctx) error {
	r.Refresher.Trigger()

	c.Status(fiber.StatusAccepted)
	return c.JSON(fiber.Map{
		"status": "refresh scheduled",
	})
}
