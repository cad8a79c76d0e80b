package transport

const DefaultMaxItems = 5

// MobilityRequestBody is the query sent to the mobility endpoint for a single type
type MobilityRequestBody struct {
	Type     TransportType `json:"type"`
	Lat      float64       `json:"lat"`
	Lon      float64       `json:"lon"`
	MaxItems int           `json:"maxItems"`

	// Force asks the backend to bypass its own cache
	Force bool `json:"force"`
}

func NewMobilityRequestBody(transportType TransportType, location TransportLocation) MobilityRequestBody {
	return MobilityRequestBody{
		Type:     transportType,
		Lat:      location.Latitude,
		Lon:      location.Longitude,
		MaxItems: DefaultMaxItems,
	}
}
