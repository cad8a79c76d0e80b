package transport

// DefaultMarkerIcon is the bundled map marker used when no symbol could be resolved
const DefaultMarkerIcon = "bus_symbol"

// TransportData is one provider or stop grouping returned by the mobility endpoint
type TransportData struct {
	Type     TransportType `json:"type" groups:"basic"`
	Provider string        `json:"provider" groups:"basic"`
	Name     string        `json:"name" groups:"basic"`
	Title    string        `json:"title" groups:"basic"`

	// Stop is only set for the stop based types
	Stop *TransportStop `json:"stop,omitempty" groups:"basic"`

	IconURL   string  `json:"iconUrl" groups:"basic"`
	SymbolURL *string `json:"symbolUrl,omitempty" groups:"detailed"`

	Distance  float64 `json:"distance" groups:"basic"`
	Timestamp int64   `json:"timestamp" groups:"detailed"`
	Count     int     `json:"count" groups:"detailed"`

	Location TransportLocation `json:"location" groups:"basic"`

	AvailableOptions []TransportOption `json:"availableOptions" groups:"basic"`
}

type TransportStop struct {
	ID       string            `json:"id" groups:"basic"`
	Name     string            `json:"name" groups:"basic"`
	Distance float64           `json:"distance" groups:"basic"`
	Location TransportLocation `json:"location" groups:"basic"`
}

func (d *TransportData) NameFromType() string {
	if d.Type.IsStopBased() {
		if d.Stop == nil {
			return ""
		}
		return d.Stop.Name
	}

	if d.Type.IsKnown() {
		return d.Title
	}

	return string(d.Type)
}

// MarkerIconName returns the bundled marker asset for the record type, empty for unknown types
func (d *TransportData) MarkerIconName() string {
	if d.Type.IsKnown() {
		return DefaultMarkerIcon
	}

	return ""
}

func (d *TransportData) HasOptions() bool {
	return len(d.AvailableOptions) > 0
}

// Symbol returns the entry level symbol URL or an empty string
func (d *TransportData) Symbol() string {
	if d.SymbolURL == nil {
		return ""
	}

	return *d.SymbolURL
}
