package transport

import (
	"fmt"
	"time"
)

type BatteryIndicator string

const (
	BatteryIndicatorNone BatteryIndicator = ""
	BatteryIndicatorLow  BatteryIndicator = "low"
	BatteryIndicatorMid  BatteryIndicator = "mid"
	BatteryIndicatorFull BatteryIndicator = "full"
)

const (
	batteryLowThreshold  = 0.35
	batteryFullThreshold = 0.75

	// departures further away than this are shown as a clock time
	relativeDepartureWindow = 15
)

const (
	DepartureLabelNow     = "jetzt"
	DepartureLabelUnknown = "---"
)

func (o *TransportOption) BatteryIndicator() BatteryIndicator {
	switch {
	case !o.HasBattery():
		return BatteryIndicatorNone
	case o.EnergyLevel < batteryLowThreshold:
		return BatteryIndicatorLow
	case o.EnergyLevel > batteryFullThreshold:
		return BatteryIndicatorFull
	default:
		return BatteryIndicatorMid
	}
}

// DepartureLabel renders the departure as "jetzt", "in N min" or "um HH:mm" in the given location
func (o *TransportOption) DepartureLabel(now time.Time, location *time.Location) string {
	if o.DepartureTimeDisplay() == nil {
		return ""
	}

	departure, err := o.DepartureTime()
	if err != nil {
		return DepartureLabelUnknown
	}

	minutes := int64(departure.Sub(now) / time.Minute)

	switch {
	case minutes <= 0:
		return DepartureLabelNow
	case minutes <= relativeDepartureWindow:
		return fmt.Sprintf("in %d min", minutes)
	default:
		if location == nil {
			location = time.Local
		}
		return fmt.Sprintf("um %s", departure.In(location).Format("15:04"))
	}
}

// RowLabel is the right hand text of a list row: walking time for vehicles, departure otherwise
func (o *TransportOption) RowLabel(now time.Time, location *time.Location) string {
	if o.IconURL != "" || o.HasBattery() {
		return fmt.Sprintf("%dmin", o.WalkMinutes())
	}

	return o.DepartureLabel(now, location)
}
