package monitor

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/config"
	"github.com/travigo/mobility-monitor/pkg/location"
	"github.com/travigo/mobility-monitor/pkg/markericon"
	"github.com/travigo/mobility-monitor/pkg/mobilityapi"
	"github.com/travigo/mobility-monitor/pkg/redis_client"
	"github.com/travigo/mobility-monitor/pkg/requesthandler"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

// Service wires the store, fetch client, icon loader and refresher from a configuration
type Service struct {
	Store          *Store
	Orchestrator   *Orchestrator
	Refresher      *Refresher
	DeviceLocation *location.DeviceLocation
}

func NewService(cfg config.Config) (*Service, error) {
	refreshRate, err := cfg.RefreshRate()
	if err != nil {
		return nil, err
	}
	locationMaxAge, err := cfg.LocationMaxAgeDuration()
	if err != nil {
		return nil, err
	}

	store := NewStore(transport.Categories)

	// fetch failures put the screen into its error state, icon failures only drop the marker
	mobilityClient := &mobilityapi.Client{
		BaseURL:        cfg.APIURL,
		ApplicationID:  cfg.ApplicationID,
		RESTKey:        cfg.RESTKey,
		RequestHandler: requesthandler.New(requesthandler.DefaultConfig(), store),
	}

	iconLoader := &markericon.Loader{
		RequestHandler: requesthandler.New(requesthandler.DefaultConfig(), nil),
	}
	if redis_client.Client != nil {
		iconLoader.Cache = markericon.NewRedisIconCache(redis_client.Client, markericon.DefaultCacheExpiration)
		log.Info().Msg("Marker icon cache enabled")
	}

	orchestrator := &Orchestrator{
		Store:           store,
		Fetcher:         mobilityClient,
		Icons:           iconLoader,
		Categories:      transport.Categories,
		MaxItems:        cfg.MaxItems,
		IconConcurrency: cfg.IconConcurrency,
	}

	deviceLocation := location.NewDeviceLocation(locationMaxAge)

	return &Service{
		Store:          store,
		Orchestrator:   orchestrator,
		Refresher:      NewRefresher(orchestrator, deviceLocation, cfg.InitialLocation(), refreshRate),
		DeviceLocation: deviceLocation,
	}, nil
}
