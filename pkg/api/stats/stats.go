package stats

import (
	"github.com/travigo/mobility-monitor/pkg/monitor"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

type RecordsStats struct {
	Categories map[transport.TransportType]CategoryStats `groups:"basic" json:"categories"`

	Entries int `groups:"basic" json:"entries"`
	Options int `groups:"basic" json:"options"`
	Markers int `groups:"basic" json:"markers"`
	Errors  int `groups:"basic" json:"errors"`
}

type CategoryStats struct {
	Loaded  bool `groups:"basic" json:"loaded"`
	Entries int  `groups:"basic" json:"entries"`
	Options int  `groups:"basic" json:"options"`
	Markers int  `groups:"basic" json:"markers"`
}

func GetRecordsStats(snapshot monitor.Snapshot) *RecordsStats {
	recordsStats := &RecordsStats{
		Categories: map[transport.TransportType]CategoryStats{},
		Markers:    len(snapshot.Markers),
	}

	for _, category := range snapshot.Categories {
		categoryStats := CategoryStats{
			Loaded:  category.Loaded,
			Entries: len(category.Entries),
		}

		for _, entry := range category.Entries {
			categoryStats.Options += len(entry.AvailableOptions)
		}

		for _, marker := range snapshot.Markers {
			if marker.Category == category.Category {
				categoryStats.Markers++
			}
		}

		if category.Error != "" {
			recordsStats.Errors++
		}

		recordsStats.Entries += categoryStats.Entries
		recordsStats.Options += categoryStats.Options
		recordsStats.Categories[category.Category] = categoryStats
	}

	return recordsStats
}
