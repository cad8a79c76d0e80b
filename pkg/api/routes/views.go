package routes

import (
	"fmt"
	"time"

	"github.com/travigo/mobility-monitor/pkg/monitor"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

type dashboardView struct {
	Version    uint64              `json:"version" groups:"basic"`
	Screen     monitor.ScreenState `json:"screen" groups:"basic"`
	Categories []categoryView      `json:"categories" groups:"basic"`
	Markers    []markerView        `json:"markers" groups:"basic"`

	UserLocation      transport.TransportLocation `json:"userLocation" groups:"basic"`
	UserLocationFound bool                        `json:"userLocationFound" groups:"basic"`
}

type categoryView struct {
	Category  transport.TransportType `json:"category" groups:"basic"`
	Loaded    bool                    `json:"loaded" groups:"basic"`
	Error     string                  `json:"error,omitempty" groups:"basic"`
	Sequence  uint64                  `json:"sequence" groups:"detailed"`
	UpdatedAt string                  `json:"updatedAt,omitempty" groups:"detailed"`

	Entries []entryView `json:"entries" groups:"basic"`
}

type entryView struct {
	Type       transport.TransportType `json:"type" groups:"basic"`
	Provider   string                  `json:"provider" groups:"basic"`
	Name       string                  `json:"name" groups:"basic"`
	Title      string                  `json:"title" groups:"basic"`
	IconURL    string                  `json:"iconUrl" groups:"basic"`
	MarkerIcon string                  `json:"markerIcon" groups:"basic"`
	SymbolURL  string                  `json:"symbolUrl,omitempty" groups:"detailed"`

	Distance     float64                  `json:"distance" groups:"basic"`
	StopDistance string                   `json:"stopDistance,omitempty" groups:"basic"`
	UserDistance string                   `json:"userDistance,omitempty" groups:"basic"`
	Stop         *transport.TransportStop `json:"stop,omitempty" groups:"basic"`

	Location  transport.TransportLocation `json:"location" groups:"basic"`
	Timestamp int64                       `json:"timestamp" groups:"detailed"`

	Options []optionView `json:"options" groups:"basic"`
}

type optionView struct {
	ID        string `json:"id" groups:"basic"`
	Provider  string `json:"provider" groups:"basic"`
	ShortName string `json:"shortName" groups:"basic"`
	Name      string `json:"name" groups:"basic"`

	DepartureLabel     string `json:"departureLabel,omitempty" groups:"basic"`
	RowLabel           string `json:"rowLabel,omitempty" groups:"basic"`
	MinutesToDeparture *int64 `json:"minutesToDeparture,omitempty" groups:"basic"`
	Delayed            bool   `json:"delayed" groups:"basic"`
	Delay              int    `json:"delay" groups:"basic"`

	Battery     transport.BatteryIndicator `json:"battery,omitempty" groups:"basic"`
	EnergyLevel float64                    `json:"energyLevel" groups:"basic"`
	WalkMinutes int                        `json:"walkMinutes" groups:"basic"`
	Distance    float64                    `json:"distance" groups:"basic"`

	Location transport.TransportLocation `json:"location" groups:"basic"`
	IconURL  string                      `json:"iconUrl" groups:"basic"`

	DepartureTimePlanned   *string                     `json:"departureTimePlanned,omitempty" groups:"detailed"`
	DepartureTimeEstimated *string                     `json:"departureTimeEstimated,omitempty" groups:"detailed"`
	MinutesToEstimated     int64                       `json:"minutesToEstimated" groups:"detailed"`
	SymbolURL              string                      `json:"symbolUrl,omitempty" groups:"detailed"`
	Station                transport.TransportStation  `json:"station" groups:"detailed"`
	Deeplinks              transport.TransportDeeplink `json:"deeplinks" groups:"detailed"`
}

type markerView struct {
	ID         string                      `json:"id" groups:"basic"`
	Category   transport.TransportType     `json:"category" groups:"basic"`
	OptionID   string                      `json:"optionId" groups:"basic"`
	Title      string                      `json:"title" groups:"basic"`
	Position   transport.TransportLocation `json:"position" groups:"basic"`
	IconURL    string                      `json:"iconUrl" groups:"basic"`
	IconWidth  int                         `json:"iconWidth" groups:"basic"`
	IconHeight int                         `json:"iconHeight" groups:"basic"`
}

type viewRenderer struct {
	now      time.Time
	location *time.Location

	// userLocation is nil while the device location is unknown
	userLocation *transport.TransportLocation
}

func (r viewRenderer) dashboard(snapshot monitor.Snapshot) dashboardView {
	view := dashboardView{
		Version:           snapshot.Version,
		Screen:            snapshot.Screen,
		Categories:        []categoryView{},
		Markers:           []markerView{},
		UserLocation:      snapshot.UserLocation,
		UserLocationFound: snapshot.UserLocationFound,
	}

	for _, category := range snapshot.Categories {
		view.Categories = append(view.Categories, r.category(category))
	}
	for _, marker := range snapshot.Markers {
		view.Markers = append(view.Markers, newMarkerView(marker))
	}

	return view
}

func (r viewRenderer) category(state monitor.CategoryState) categoryView {
	view := categoryView{
		Category: state.Category,
		Loaded:   state.Loaded,
		Error:    state.Error,
		Sequence: state.Sequence,
		Entries:  []entryView{},
	}
	if !state.UpdatedAt.IsZero() {
		view.UpdatedAt = state.UpdatedAt.Format(time.RFC3339)
	}

	for _, entry := range state.Entries {
		view.Entries = append(view.Entries, r.entry(entry))
	}

	return view
}

func (r viewRenderer) entry(entry transport.TransportData) entryView {
	view := entryView{
		Type:       entry.Type,
		Provider:   entry.Provider,
		Name:       entry.NameFromType(),
		Title:      entry.Title,
		IconURL:    entry.IconURL,
		MarkerIcon: entry.MarkerIconName(),
		SymbolURL:  entry.Symbol(),
		Distance:   entry.Distance,
		Stop:       entry.Stop,
		Location:   entry.Location,
		Timestamp:  entry.Timestamp,
		Options:    []optionView{},
	}

	if entry.Stop != nil {
		view.StopDistance = fmt.Sprintf("%dm", int(entry.Stop.Distance))
	}
	if r.userLocation != nil && !entry.Location.IsZero() {
		view.UserDistance = fmt.Sprintf("%dm", int(r.userLocation.DistanceTo(entry.Location)))
	}

	for _, option := range entry.AvailableOptions {
		view.Options = append(view.Options, r.option(option))
	}

	return view
}

func (r viewRenderer) option(option transport.TransportOption) optionView {
	view := optionView{
		ID:                     option.ID,
		Provider:               option.Provider,
		ShortName:              option.ShortName,
		Name:                   option.Name,
		DepartureLabel:         option.DepartureLabel(r.now, r.location),
		RowLabel:               option.RowLabel(r.now, r.location),
		Delayed:                option.Delayed,
		Delay:                  option.Delay,
		Battery:                option.BatteryIndicator(),
		EnergyLevel:            option.EnergyLevel,
		WalkMinutes:            option.WalkMinutes(),
		Distance:               option.Distance,
		Location:               option.Location,
		IconURL:                option.IconURL,
		DepartureTimePlanned:   option.DepartureTimePlanned,
		DepartureTimeEstimated: option.DepartureTimeEstimated,
		MinutesToEstimated:     option.MinutesToEstimated(),
		SymbolURL:              option.SymbolURL,
		Station:                option.Station,
		Deeplinks:              option.Deeplinks,
	}

	if minutes, err := option.MinutesToDeparture(r.now); err == nil {
		view.MinutesToDeparture = &minutes
	}

	return view
}

func newMarkerView(marker monitor.MarkerOption) markerView {
	return markerView{
		ID:         marker.ID,
		Category:   marker.Category,
		OptionID:   marker.OptionID,
		Title:      marker.Title,
		Position:   marker.Position,
		IconURL:    fmt.Sprintf("/mobility/markers/%s/icon", marker.ID),
		IconWidth:  marker.IconWidth,
		IconHeight: marker.IconHeight,
	}
}
