package monitor

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/transport"
	"golang.org/x/exp/slices"
)

type ScreenStatus string

const (
	ScreenStatusLoading ScreenStatus = "loading"
	ScreenStatusContent ScreenStatus = "content"
	ScreenStatusError   ScreenStatus = "error"
)

// ScreenState is the screen wide status, Message is only set for errors
type ScreenState struct {
	Status  ScreenStatus `json:"status" groups:"basic"`
	Message string       `json:"message,omitempty" groups:"basic"`
}

type CategoryState struct {
	Category transport.TransportType
	Entries  []transport.TransportData

	// Loaded is set once a fetch for the category completed, successful or not
	Loaded bool

	Sequence  uint64
	UpdatedAt time.Time
	Error     string
}

// MarkerOption is a map marker derived from a single transport option
type MarkerOption struct {
	ID       string
	Category transport.TransportType
	OptionID string
	Title    string
	Position transport.TransportLocation

	Icon       image.Image
	IconWidth  int
	IconHeight int
}

// Snapshot is a copy of the whole dashboard state, safe to read without the store lock
type Snapshot struct {
	Version    uint64
	Screen     ScreenState
	Categories []CategoryState
	Markers    []MarkerOption

	UserLocation      transport.TransportLocation
	UserLocationFound bool
}

type categoryRecord struct {
	state CategoryState

	// lastIssued is the newest sequence handed out, state.Sequence the newest applied
	lastIssued uint64
	markers    []MarkerOption
}

// Store holds every piece of dashboard state. All writes go through its methods.
type Store struct {
	mutex sync.Mutex

	version    uint64
	screen     ScreenState
	cycleError bool

	categories []*categoryRecord

	userLocation      transport.TransportLocation
	userLocationFound bool

	subscribers map[string]chan Snapshot

	now func() time.Time
}

func NewStore(categories []transport.TransportType) *Store {
	store := &Store{
		screen:      ScreenState{Status: ScreenStatusLoading},
		subscribers: map[string]chan Snapshot{},
		now:         time.Now,
	}

	for _, category := range categories {
		store.categories = append(store.categories, &categoryRecord{
			state: CategoryState{Category: category},
		})
	}

	return store
}

func (s *Store) record(category transport.TransportType) *categoryRecord {
	for _, record := range s.categories {
		if record.state.Category == category {
			return record
		}
	}

	return nil
}

// ResetSession clears markers and loaded flags, used whenever the dashboard is entered
func (s *Store) ResetSession() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, record := range s.categories {
		record.state.Loaded = false
		record.state.Error = ""
		record.markers = nil
	}
	s.screen = ScreenState{Status: ScreenStatusLoading}
	s.cycleError = false

	s.changed()
}

// BeginCycle marks the screen as loading for a new refresh cycle
func (s *Store) BeginCycle() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.screen = ScreenState{Status: ScreenStatusLoading}
	s.cycleError = false

	s.changed()
}

// NextSequence hands out the sequence number for a new fetch of category
func (s *Store) NextSequence(category transport.TransportType) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record := s.record(category)
	if record == nil {
		return 0
	}

	record.lastIssued++

	return record.lastIssued
}

// ApplyEntries replaces the category list with entries. Results older than the last applied
// sequence are discarded and false is returned.
func (s *Store) ApplyEntries(category transport.TransportType, sequence uint64, entries []transport.TransportData) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record := s.record(category)
	if !s.acceptSequence(record, category, sequence) {
		return false
	}

	record.state.Entries = entries
	record.state.Loaded = true
	record.state.Sequence = sequence
	record.state.UpdatedAt = s.now()
	record.state.Error = ""

	if !s.cycleError {
		s.screen = ScreenState{Status: ScreenStatusContent}
	}

	s.changed()

	return true
}

// ApplyFailure empties the category list and records err on it
func (s *Store) ApplyFailure(category transport.TransportType, sequence uint64, err error) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record := s.record(category)
	if !s.acceptSequence(record, category, sequence) {
		return false
	}

	record.state.Entries = []transport.TransportData{}
	record.state.Loaded = true
	record.state.Sequence = sequence
	record.state.UpdatedAt = s.now()
	record.state.Error = err.Error()
	record.markers = nil

	s.changed()

	return true
}

func (s *Store) acceptSequence(record *categoryRecord, category transport.TransportType, sequence uint64) bool {
	if record == nil {
		log.Warn().Str("category", string(category)).Msg("Result for unknown category")
		return false
	}

	if sequence <= record.state.Sequence {
		log.Debug().
			Str("category", string(category)).
			Uint64("sequence", sequence).
			Uint64("applied", record.state.Sequence).
			Msg("Discarding stale mobility result")
		return false
	}

	return true
}

// ReplaceMarkers swaps the marker set of category, only while sequence is still the applied one
func (s *Store) ReplaceMarkers(category transport.TransportType, sequence uint64, markers []MarkerOption) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record := s.record(category)
	if record == nil || record.state.Sequence != sequence {
		return false
	}

	record.markers = markers

	s.changed()

	return true
}

// ReportError switches the screen into the error state for the rest of the cycle. Reports made
// for a category fetch that is older than the last applied one are ignored.
func (s *Store) ReportError(ctx context.Context, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if fetch, ok := ctx.Value(fetchContextKey{}).(fetchReference); ok {
		record := s.record(fetch.category)
		if record != nil && fetch.sequence <= record.state.Sequence {
			log.Debug().
				Str("category", string(fetch.category)).
				Uint64("sequence", fetch.sequence).
				Uint64("applied", record.state.Sequence).
				Err(err).
				Msg("Ignoring error of stale mobility fetch")
			return
		}
	}

	s.screen = ScreenState{Status: ScreenStatusError, Message: err.Error()}
	s.cycleError = true

	s.changed()
}

type fetchContextKey struct{}

type fetchReference struct {
	category transport.TransportType
	sequence uint64
}

// withFetchReference tags ctx with the category fetch it belongs to
func withFetchReference(ctx context.Context, category transport.TransportType, sequence uint64) context.Context {
	return context.WithValue(ctx, fetchContextKey{}, fetchReference{category: category, sequence: sequence})
}

func (s *Store) SetUserLocation(location transport.TransportLocation, found bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.userLocation = location
	s.userLocationFound = found

	s.changed()
}

func (s *Store) UserLocation() (transport.TransportLocation, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.userLocation, s.userLocationFound
}

func (s *Store) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.snapshot()
}

func (s *Store) snapshot() Snapshot {
	snapshot := Snapshot{
		Version:           s.version,
		Screen:            s.screen,
		UserLocation:      s.userLocation,
		UserLocationFound: s.userLocationFound,
		Markers:           []MarkerOption{},
	}

	for _, record := range s.categories {
		state := record.state
		state.Entries = []transport.TransportData{}
		if len(record.state.Entries) > 0 {
			var entries []transport.TransportData
			if err := copier.CopyWithOption(&entries, record.state.Entries, copier.Option{DeepCopy: true}); err != nil {
				log.Error().Err(err).Str("category", string(record.state.Category)).Msg("Failed to copy category entries")
			} else {
				state.Entries = entries
			}
		}

		snapshot.Categories = append(snapshot.Categories, state)

		// icons are never mutated once built so they are shared
		snapshot.Markers = append(snapshot.Markers, record.markers...)
	}

	return snapshot
}

// Category returns a copy of a single category state
func (s *Store) Category(category transport.TransportType) (CategoryState, bool) {
	snapshot := s.Snapshot()

	index := slices.IndexFunc(snapshot.Categories, func(state CategoryState) bool {
		return state.Category == category
	})
	if index < 0 {
		return CategoryState{}, false
	}

	return snapshot.Categories[index], true
}

func (s *Store) Markers() []MarkerOption {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	markers := []MarkerOption{}
	for _, record := range s.categories {
		markers = append(markers, record.markers...)
	}

	return markers
}

func (s *Store) Marker(id string) (MarkerOption, bool) {
	markers := s.Markers()

	index := slices.IndexFunc(markers, func(marker MarkerOption) bool {
		return marker.ID == id
	})
	if index < 0 {
		return MarkerOption{}, false
	}

	return markers[index], true
}

// Subscribe returns a channel receiving the latest snapshot after every change. Slow
// subscribers only ever see the newest snapshot.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := uuid.New().String()
	updates := make(chan Snapshot, 1)
	s.subscribers[id] = updates

	unsubscribe := func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		if _, exists := s.subscribers[id]; exists {
			delete(s.subscribers, id)
			close(updates)
		}
	}

	return updates, unsubscribe
}

// changed must be called with the mutex held
func (s *Store) changed() {
	s.version++

	if len(s.subscribers) == 0 {
		return
	}

	snapshot := s.snapshot()
	for _, updates := range s.subscribers {
		select {
		case <-updates:
		default:
		}

		select {
		case updates <- snapshot:
		default:
		}
	}
}
