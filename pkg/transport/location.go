package transport

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371008.8

type TransportLocation struct {
	Latitude  float64 `json:"lat" groups:"basic"`
	Longitude float64 `json:"lon" groups:"basic"`
}

// DistanceTo returns the great-circle distance in metres
func (l TransportLocation) DistanceTo(other TransportLocation) float64 {
	lat1 := degreesToRadians(l.Latitude)
	lat2 := degreesToRadians(other.Latitude)
	deltaLat := degreesToRadians(other.Latitude - l.Latitude)
	deltaLon := degreesToRadians(other.Longitude - l.Longitude)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func (l TransportLocation) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Validate checks the coordinates are within WGS84 range
func (l TransportLocation) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", l.Longitude)
	}

	return nil
}
