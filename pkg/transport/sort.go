package transport

import (
	"strings"

	"golang.org/x/exp/slices"
)

// SortOptionsByDeparture orders options by display departure time, keeping the order of equal
// times. Options without any departure time sort first.
func SortOptionsByDeparture(options []TransportOption) {
	slices.SortStableFunc(options, func(a, b TransportOption) int {
		return strings.Compare(departureSortKey(&a), departureSortKey(&b))
	})
}

func departureSortKey(option *TransportOption) string {
	display := option.DepartureTimeDisplay()
	if display == nil {
		return ""
	}

	return *display
}
