package monitor

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/mobility-monitor/pkg/markericon"
	"github.com/travigo/mobility-monitor/pkg/mobilityapi"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

const defaultIconConcurrency = 4

var markerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mobility-monitor/markers"))

// IconLoader resolves a symbol URL into an image, nil without error when there is none
type IconLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Orchestrator fetches every category and reconciles the results into Store
type Orchestrator struct {
	Store   *Store
	Fetcher mobilityapi.Fetcher
	Icons   IconLoader

	Categories      []transport.TransportType
	MaxItems        int
	IconConcurrency int
}

// RefreshCycle tracks the category tasks started by a single UpdateMobility call
type RefreshCycle struct {
	pool *pool.Pool
}

// Wait blocks until every category task of the cycle finished
func (c *RefreshCycle) Wait() {
	c.pool.Wait()
}

// UpdateMobility starts one independent fetch per category and returns without waiting for them
func (o *Orchestrator) UpdateMobility(ctx context.Context, coords transport.TransportLocation) *RefreshCycle {
	o.Store.BeginCycle()

	categoryPool := pool.New()
	for _, category := range o.categories() {
		categoryPool.Go(func() {
			if err := o.FetchForType(ctx, category, coords); err != nil {
				log.Error().Err(err).Str("category", string(category)).Msg("Failed to update mobility category")
			}
		})
	}

	return &RefreshCycle{pool: categoryPool}
}

// FetchForType fetches a single category and applies the result to the store
func (o *Orchestrator) FetchForType(ctx context.Context, category transport.TransportType, coords transport.TransportLocation) error {
	sequence := o.Store.NextSequence(category)

	body := transport.NewMobilityRequestBody(category, coords)
	if o.MaxItems > 0 {
		body.MaxItems = o.MaxItems
	}

	entries, err := o.Fetcher.FetchForType(withFetchReference(ctx, category, sequence), body)
	if ctx.Err() != nil {
		log.Debug().Str("category", string(category)).Uint64("sequence", sequence).Msg("Mobility fetch cancelled")
		return nil
	}
	if err != nil {
		if !o.Store.ApplyFailure(category, sequence, err) {
			return nil
		}
		return err
	}

	useParentSymbol := category == transport.TransportTypePublicTransport
	if useParentSymbol {
		for i := range entries {
			transport.SortOptionsByDeparture(entries[i].AvailableOptions)
		}
	}

	if !o.Store.ApplyEntries(category, sequence, entries) {
		return nil
	}

	log.Debug().
		Str("category", string(category)).
		Uint64("sequence", sequence).
		Int("entries", len(entries)).
		Msg("Applied mobility entries")

	markers := o.buildMarkers(ctx, category, entries, useParentSymbol)
	if ctx.Err() != nil {
		return nil
	}

	o.Store.ReplaceMarkers(category, sequence, markers)

	return nil
}

type markerCandidate struct {
	entry       *transport.TransportData
	entryIndex  int
	option      transport.TransportOption
	optionIndex int
	symbol      string
}

func (o *Orchestrator) buildMarkers(ctx context.Context, category transport.TransportType, entries []transport.TransportData, useParentSymbol bool) []MarkerOption {
	var candidates []markerCandidate
	var symbols []string
	seenSymbols := map[string]bool{}

	for entryIndex := range entries {
		entry := &entries[entryIndex]

		for optionIndex, option := range entry.AvailableOptions {
			symbol := option.SymbolURL
			if useParentSymbol {
				symbol = entry.Symbol()
			}
			if symbol == "" {
				continue
			}

			candidates = append(candidates, markerCandidate{
				entry:       entry,
				entryIndex:  entryIndex,
				option:      option,
				optionIndex: optionIndex,
				symbol:      symbol,
			})

			if !seenSymbols[symbol] {
				seenSymbols[symbol] = true
				symbols = append(symbols, symbol)
			}
		}
	}

	if len(candidates) == 0 || o.Icons == nil {
		return []MarkerOption{}
	}

	icons := o.loadIcons(ctx, category, symbols)

	markers := []MarkerOption{}
	for _, candidate := range candidates {
		icon, exists := icons[candidate.symbol]
		if !exists {
			continue
		}

		title := candidate.option.Name
		if title == "" {
			title = candidate.entry.NameFromType()
		}

		markers = append(markers, MarkerOption{
			ID:         markerID(category, candidate),
			Category:   category,
			OptionID:   candidate.option.ID,
			Title:      title,
			Position:   candidate.option.Location,
			Icon:       icon,
			IconWidth:  icon.Bounds().Dx(),
			IconHeight: icon.Bounds().Dy(),
		})
	}

	return markers
}

// loadIcons downloads and scales every distinct symbol, symbols without an image are left out
func (o *Orchestrator) loadIcons(ctx context.Context, category transport.TransportType, symbols []string) map[string]image.Image {
	concurrency := o.IconConcurrency
	if concurrency <= 0 {
		concurrency = defaultIconConcurrency
	}

	var mutex sync.Mutex
	icons := map[string]image.Image{}

	iconPool := pool.New().WithMaxGoroutines(concurrency)
	for _, symbol := range symbols {
		iconPool.Go(func() {
			img, err := o.Icons.Load(ctx, symbol)
			if err != nil {
				log.Error().Err(err).Str("category", string(category)).Str("url", symbol).Msg("Failed to load marker icon")
				return
			}
			if img == nil {
				return
			}

			scaled := markericon.ScaleDouble(img)

			mutex.Lock()
			icons[symbol] = scaled
			mutex.Unlock()
		})
	}
	iconPool.Wait()

	return icons
}

func markerID(category transport.TransportType, candidate markerCandidate) string {
	name := fmt.Sprintf("%s/%d/%d/%s/%f,%f",
		category,
		candidate.entryIndex,
		candidate.optionIndex,
		candidate.option.ID,
		candidate.option.Location.Latitude,
		candidate.option.Location.Longitude,
	)

	return uuid.NewSHA1(markerNamespace, []byte(name)).String()
}

func (o *Orchestrator) categories() []transport.TransportType {
	if len(o.Categories) == 0 {
		return transport.Categories
	}

	return o.Categories
}
