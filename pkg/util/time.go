package util

import (
	"time"

	iso8601 "github.com/senseyeio/duration"
)

// ParseISO8601Duration converts an ISO-8601 duration such as PT60S into a time.Duration,
// resolving calendar units relative to from
func ParseISO8601Duration(value string, from time.Time) (time.Duration, error) {
	duration, err := iso8601.ParseISO8601(value)
	if err != nil {
		return 0, err
	}

	return duration.Shift(from).Sub(from), nil
}
