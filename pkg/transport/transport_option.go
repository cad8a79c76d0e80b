package transport

import (
	"encoding/json"
	"errors"
	"time"
)

// EnergyLevelNotApplicable marks options without a battery (departures, taxis, cars)
const EnergyLevelNotApplicable = -1

var ErrNoDepartureTime = errors.New("option has no departure time")

// TransportOption is one concrete departure or vehicle within a TransportData entry
type TransportOption struct {
	ID        string `json:"id" groups:"basic"`
	Provider  string `json:"provider" groups:"basic"`
	ShortName string `json:"shortName" groups:"basic"`
	Name      string `json:"name" groups:"basic"`
	Product   int    `json:"product" groups:"detailed"`

	Distance float64 `json:"distance" groups:"basic"`

	DepartureTimePlanned   *string `json:"departureTimePlanned,omitempty" groups:"basic"`
	DepartureTimeEstimated *string `json:"departureTimeEstimated,omitempty" groups:"basic"`

	Delayed bool `json:"delayed" groups:"basic"`
	Delay   int  `json:"delay" groups:"basic"`

	// EnergyLevel is a 0..1 battery fraction, or -1 when not applicable
	EnergyLevel float64 `json:"energyLevel" groups:"basic"`

	Location TransportLocation `json:"location" groups:"basic"`

	IconURL   string `json:"iconUrl" groups:"basic"`
	SymbolURL string `json:"symbolUrl" groups:"detailed"`

	Station   TransportStation  `json:"station" groups:"detailed"`
	Deeplinks TransportDeeplink `json:"deeplinks" groups:"detailed"`
}

type TransportStation struct {
	Name    string `json:"name" groups:"detailed"`
	Address string `json:"address" groups:"detailed"`
	City    string `json:"city" groups:"detailed"`
}

type TransportDeeplink struct {
	Android string `json:"android" groups:"detailed"`
	IOS     string `json:"ios" groups:"detailed"`
}

func (o *TransportOption) UnmarshalJSON(data []byte) error {
	type transportOptionAlias TransportOption

	alias := transportOptionAlias{EnergyLevel: EnergyLevelNotApplicable}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*o = TransportOption(alias)
	return nil
}

// DepartureTimeDisplay is the estimated departure if known, otherwise the planned one
func (o *TransportOption) DepartureTimeDisplay() *string {
	if o.DepartureTimeEstimated != nil {
		return o.DepartureTimeEstimated
	}

	return o.DepartureTimePlanned
}

func (o *TransportOption) DepartureTime() (time.Time, error) {
	display := o.DepartureTimeDisplay()
	if display == nil {
		return time.Time{}, ErrNoDepartureTime
	}

	return time.Parse(time.RFC3339, *display)
}

// MinutesToDeparture counts whole minutes from now until the display departure time
func (o *TransportOption) MinutesToDeparture(now time.Time) (int64, error) {
	departure, err := o.DepartureTime()
	if err != nil {
		return 0, err
	}

	return int64(departure.Sub(now) / time.Minute), nil
}

// MinutesToEstimated is the difference between planned and estimated departure
func (o *TransportOption) MinutesToEstimated() int64 {
	if o.DepartureTimePlanned == nil || o.DepartureTimeEstimated == nil {
		return 0
	}

	planned, err := time.Parse(time.RFC3339, *o.DepartureTimePlanned)
	if err != nil {
		return 0
	}
	estimated, err := time.Parse(time.RFC3339, *o.DepartureTimeEstimated)
	if err != nil {
		return 0
	}

	return int64(estimated.Sub(planned) / time.Minute)
}

func (o *TransportOption) HasBattery() bool {
	return o.EnergyLevel >= 0
}

// WalkMinutes estimates the walking time to the option at 100 metres per minute
func (o *TransportOption) WalkMinutes() int {
	return int(o.Distance) / 100
}
