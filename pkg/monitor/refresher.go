package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/location"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

const DefaultRefreshRate = 60 * time.Second

// Refresher runs the periodic mobility refresh while the dashboard is active
type Refresher struct {
	Orchestrator *Orchestrator
	Location     location.Provider

	// InitialLocation is used whenever the provider has no location
	InitialLocation transport.TransportLocation
	RefreshRate     time.Duration

	trigger chan struct{}
}

func NewRefresher(orchestrator *Orchestrator, provider location.Provider, initialLocation transport.TransportLocation, refreshRate time.Duration) *Refresher {
	return &Refresher{
		Orchestrator:    orchestrator,
		Location:        provider,
		InitialLocation: initialLocation,
		RefreshRate:     refreshRate,
		trigger:         make(chan struct{}, 1),
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled
func (r *Refresher) Run(ctx context.Context) {
	refreshRate := r.RefreshRate
	if refreshRate <= 0 {
		refreshRate = DefaultRefreshRate
	}

	log.Info().Dur("refresh", refreshRate).Msg("Starting mobility refresher")

	r.Orchestrator.Store.ResetSession()
	r.refresh(ctx)

	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping mobility refresher")
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.trigger:
			r.refresh(ctx)
			ticker.Reset(refreshRate)
		}
	}
}

// Trigger requests an out of schedule refresh, multiple pending triggers collapse into one
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	coords := r.currentLocation(ctx)

	cycle := r.Orchestrator.UpdateMobility(ctx, coords)

	go func() {
		startTime := time.Now()
		cycle.Wait()
		log.Debug().Str("latency", time.Since(startTime).String()).Msg("Mobility refresh cycle finished")
	}()
}

func (r *Refresher) currentLocation(ctx context.Context) transport.TransportLocation {
	if r.Location != nil {
		coords, found, err := r.Location.LastLocation(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to get device location")
		} else if found {
			r.Orchestrator.Store.SetUserLocation(coords, true)
			return coords
		}
	}

	log.Warn().
		Float64("lat", r.InitialLocation.Latitude).
		Float64("lon", r.InitialLocation.Longitude).
		Msg("No device location, using initial location")
	r.Orchestrator.Store.SetUserLocation(r.InitialLocation, false)

	return r.InitialLocation
}
