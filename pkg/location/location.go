package location

import (
	"context"
	"sync"
	"time"

	"github.com/travigo/mobility-monitor/pkg/transport"
)

// Provider returns the last known position of the device. found is false when no
// position is available yet.
type Provider interface {
	LastLocation(ctx context.Context) (location transport.TransportLocation, found bool, err error)
}

// StaticLocation always reports the same coordinates
type StaticLocation struct {
	Location transport.TransportLocation
}

func (s StaticLocation) LastLocation(ctx context.Context) (transport.TransportLocation, bool, error) {
	return s.Location, true, nil
}

// DeviceLocation holds the last location pushed by a client
type DeviceLocation struct {
	// MaxAge is how long a pushed location stays valid, zero keeps it forever
	MaxAge time.Duration

	mutex     sync.RWMutex
	location  transport.TransportLocation
	updatedAt time.Time
	found     bool

	now func() time.Time
}

func NewDeviceLocation(maxAge time.Duration) *DeviceLocation {
	return &DeviceLocation{
		MaxAge: maxAge,
		now:    time.Now,
	}
}

func (d *DeviceLocation) Update(location transport.TransportLocation) error {
	if err := location.Validate(); err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.location = location
	d.updatedAt = d.currentTime()
	d.found = true

	return nil
}

func (d *DeviceLocation) LastLocation(ctx context.Context) (transport.TransportLocation, bool, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if !d.found {
		return transport.TransportLocation{}, false, nil
	}

	if d.MaxAge > 0 && d.currentTime().Sub(d.updatedAt) > d.MaxAge {
		return transport.TransportLocation{}, false, nil
	}

	return d.location, true, nil
}

func (d *DeviceLocation) currentTime() time.Time {
	if d.now == nil {
		return time.Now()
	}

	return d.now()
}
