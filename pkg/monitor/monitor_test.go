package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/mobility-monitor/pkg/location"
	"github.com/travigo/mobility-monitor/pkg/mobilityapi"
	"github.com/travigo/mobility-monitor/pkg/requesthandler"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

var testLocation = transport.TransportLocation{Latitude: 51.1657, Longitude: 7.0672}

type fakeFetcher struct {
	mutex sync.Mutex

	responses map[transport.TransportType]string
	failures  map[transport.TransportType]error
	requests  []transport.MobilityRequestBody
}

func (f *fakeFetcher) FetchForType(ctx context.Context, body transport.MobilityRequestBody) ([]transport.TransportData, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests = append(f.requests, body)

	if err := f.failures[body.Type]; err != nil {
		return nil, err
	}

	var entries []transport.TransportData
	if response := f.responses[body.Type]; response != "" {
		if err := json.Unmarshal([]byte(response), &entries); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

func (f *fakeFetcher) Requests() []transport.MobilityRequestBody {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]transport.MobilityRequestBody{}, f.requests...)
}

type fakeIcons struct {
	mutex sync.Mutex

	icons    map[string]image.Image
	failures map[string]error
	loads    map[string]int
}

func (f *fakeIcons) Load(ctx context.Context, url string) (image.Image, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.loads == nil {
		f.loads = map[string]int{}
	}
	f.loads[url]++

	if err := f.failures[url]; err != nil {
		return nil, err
	}

	return f.icons[url], nil
}

func newTestOrchestrator(fetcher *fakeFetcher, icons *fakeIcons) *Orchestrator {
	return &Orchestrator{
		Store:      NewStore(transport.Categories),
		Fetcher:    fetcher,
		Icons:      icons,
		Categories: transport.Categories,
		MaxItems:   7,
	}
}

func categoryState(t *testing.T, store *Store, category transport.TransportType) CategoryState {
	t.Helper()

	state, ok := store.Category(category)
	require.True(t, ok)

	return state
}

const escooterResponse = `[
	{
		"type": "escooter",
		"provider": "tier",
		"title": "TIER",
		"availableOptions": [
			{"id": "s1", "energyLevel": 0.8, "symbolUrl": "https://icons/tier.png", "location": {"lat": 51.1, "lon": 7.01}},
			{"id": "s2", "energyLevel": 0.2, "symbolUrl": "", "location": {"lat": 51.2, "lon": 7.02}}
		]
	}
]`

const publicTransportResponse = `[
	{
		"type": "bus",
		"symbolUrl": "https://icons/bus.png",
		"stop": {"id": "stop-1", "name": "Graf-Wilhelm-Platz"},
		"availableOptions": [
			{"id": "b3", "name": "684", "departureTimePlanned": "2024-05-01T12:30:00Z", "location": {"lat": 51.17, "lon": 7.08}},
			{"id": "b1", "name": "683", "location": {"lat": 51.17, "lon": 7.08}},
			{"id": "b2", "name": "695", "departureTimePlanned": "2024-05-01T12:10:00Z", "departureTimeEstimated": "2024-05-01T12:12:00Z", "location": {"lat": 51.17, "lon": 7.08}}
		]
	}
]`

func TestUpdateMobilityLoadsEveryCategory(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypeEscooter:        escooterResponse,
			transport.TransportTypePublicTransport: publicTransportResponse,
		},
	}
	orchestrator := newTestOrchestrator(fetcher, &fakeIcons{})

	orchestrator.UpdateMobility(context.Background(), testLocation).Wait()

	for _, category := range transport.Categories {
		state := categoryState(t, orchestrator.Store, category)
		assert.True(t, state.Loaded, string(category))
		assert.Empty(t, state.Error)
		assert.Equal(t, uint64(1), state.Sequence)
	}

	assert.Empty(t, categoryState(t, orchestrator.Store, transport.TransportTypeTaxi).Entries)
	assert.Len(t, categoryState(t, orchestrator.Store, transport.TransportTypeEscooter).Entries, 1)

	requests := fetcher.Requests()
	require.Len(t, requests, len(transport.Categories))
	for _, request := range requests {
		assert.Equal(t, 7, request.MaxItems)
		assert.False(t, request.Force)
		assert.Equal(t, testLocation.Latitude, request.Lat)
		assert.Equal(t, testLocation.Longitude, request.Lon)
	}

	assert.Equal(t, ScreenStatusContent, orchestrator.Store.Snapshot().Screen.Status)
}

func TestFetchForTypeSortsPublicTransport(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypePublicTransport: publicTransportResponse,
		},
	}
	orchestrator := newTestOrchestrator(fetcher, &fakeIcons{})

	require.NoError(t, orchestrator.FetchForType(context.Background(), transport.TransportTypePublicTransport, testLocation))

	entries := categoryState(t, orchestrator.Store, transport.TransportTypePublicTransport).Entries
	require.Len(t, entries, 1)

	var ids []string
	for _, option := range entries[0].AvailableOptions {
		ids = append(ids, option.ID)
	}
	assert.Equal(t, []string{"b1", "b2", "b3"}, ids)
}

func TestFailingCategoryIsIsolated(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypeEscooter: escooterResponse,
		},
		failures: map[transport.TransportType]error{
			transport.TransportTypeTaxi: errors.New("taxi backend down"),
		},
	}
	icons := &fakeIcons{icons: map[string]image.Image{
		"https://icons/tier.png": image.NewRGBA(image.Rect(0, 0, 10, 10)),
	}}
	orchestrator := newTestOrchestrator(fetcher, icons)

	orchestrator.UpdateMobility(context.Background(), testLocation).Wait()

	taxi := categoryState(t, orchestrator.Store, transport.TransportTypeTaxi)
	assert.True(t, taxi.Loaded)
	assert.Empty(t, taxi.Entries)
	assert.Equal(t, "taxi backend down", taxi.Error)

	escooter := categoryState(t, orchestrator.Store, transport.TransportTypeEscooter)
	assert.True(t, escooter.Loaded)
	assert.Len(t, escooter.Entries, 1)
	assert.Empty(t, escooter.Error)

	assert.Len(t, orchestrator.Store.Markers(), 1)
}

func TestMarkersFromOptionSymbols(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypeEscooter: escooterResponse,
		},
	}
	icons := &fakeIcons{icons: map[string]image.Image{
		"https://icons/tier.png": image.NewRGBA(image.Rect(0, 0, 16, 20)),
	}}
	orchestrator := newTestOrchestrator(fetcher, icons)

	require.NoError(t, orchestrator.FetchForType(context.Background(), transport.TransportTypeEscooter, testLocation))

	markers := orchestrator.Store.Markers()
	require.Len(t, markers, 1)

	marker := markers[0]
	assert.Equal(t, "s1", marker.OptionID)
	assert.Equal(t, transport.TransportTypeEscooter, marker.Category)
	assert.Equal(t, transport.TransportLocation{Latitude: 51.1, Longitude: 7.01}, marker.Position)
	assert.Equal(t, 32, marker.IconWidth)
	assert.Equal(t, 40, marker.IconHeight)
	assert.Equal(t, 32, marker.Icon.Bounds().Dx())
	assert.Equal(t, 40, marker.Icon.Bounds().Dy())

	found, ok := orchestrator.Store.Marker(marker.ID)
	assert.True(t, ok)
	assert.Equal(t, marker.OptionID, found.OptionID)
}

func TestMarkersUseParentSymbolForPublicTransport(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypePublicTransport: publicTransportResponse,
		},
	}
	icons := &fakeIcons{icons: map[string]image.Image{
		"https://icons/bus.png": image.NewRGBA(image.Rect(0, 0, 8, 8)),
	}}
	orchestrator := newTestOrchestrator(fetcher, icons)

	require.NoError(t, orchestrator.FetchForType(context.Background(), transport.TransportTypePublicTransport, testLocation))

	markers := orchestrator.Store.Markers()
	assert.Len(t, markers, 3)
	assert.Equal(t, 1, icons.loads["https://icons/bus.png"])

	ids := map[string]bool{}
	for _, marker := range markers {
		ids[marker.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestMarkersSkipMissingAndFailingIcons(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypeEscooter:        escooterResponse,
			transport.TransportTypePublicTransport: publicTransportResponse,
		},
	}
	icons := &fakeIcons{
		failures: map[string]error{"https://icons/bus.png": errors.New("decode failed")},
	}
	orchestrator := newTestOrchestrator(fetcher, icons)

	orchestrator.UpdateMobility(context.Background(), testLocation).Wait()

	assert.Empty(t, orchestrator.Store.Markers())
	assert.True(t, categoryState(t, orchestrator.Store, transport.TransportTypePublicTransport).Loaded)
	assert.Equal(t, ScreenStatusContent, orchestrator.Store.Snapshot().Screen.Status)
}

func TestMarkersNotDuplicatedAcrossRefreshes(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypeEscooter:        escooterResponse,
			transport.TransportTypePublicTransport: publicTransportResponse,
		},
	}
	icons := &fakeIcons{icons: map[string]image.Image{
		"https://icons/tier.png": image.NewRGBA(image.Rect(0, 0, 4, 4)),
		"https://icons/bus.png":  image.NewRGBA(image.Rect(0, 0, 4, 4)),
	}}
	orchestrator := newTestOrchestrator(fetcher, icons)

	for i := 0; i < 3; i++ {
		orchestrator.UpdateMobility(context.Background(), testLocation).Wait()
		assert.Len(t, orchestrator.Store.Markers(), 4)
	}
}

func TestCancelledFetchIsNotApplied(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[transport.TransportType]string{
			transport.TransportTypeEscooter: escooterResponse,
		},
	}
	orchestrator := newTestOrchestrator(fetcher, &fakeIcons{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, orchestrator.FetchForType(ctx, transport.TransportTypeEscooter, testLocation))
	assert.False(t, categoryState(t, orchestrator.Store, transport.TransportTypeEscooter).Loaded)
}

func TestStoreDiscardsStaleResults(t *testing.T) {
	store := NewStore(transport.Categories)

	first := store.NextSequence(transport.TransportTypeTaxi)
	second := store.NextSequence(transport.TransportTypeTaxi)
	assert.Greater(t, second, first)

	newer := []transport.TransportData{{Type: transport.TransportTypeTaxi, Title: "newer"}}
	older := []transport.TransportData{{Type: transport.TransportTypeTaxi, Title: "older"}}

	assert.True(t, store.ApplyEntries(transport.TransportTypeTaxi, second, newer))
	assert.False(t, store.ApplyEntries(transport.TransportTypeTaxi, first, older))
	assert.False(t, store.ApplyFailure(transport.TransportTypeTaxi, first, errors.New("late failure")))

	state, _ := store.Category(transport.TransportTypeTaxi)
	require.Len(t, state.Entries, 1)
	assert.Equal(t, "newer", state.Entries[0].Title)
	assert.Empty(t, state.Error)

	assert.False(t, store.ReplaceMarkers(transport.TransportTypeTaxi, first, []MarkerOption{{ID: "stale"}}))
	assert.True(t, store.ReplaceMarkers(transport.TransportTypeTaxi, second, []MarkerOption{{ID: "current"}}))
	assert.Len(t, store.Markers(), 1)
}

func TestStoreScreenState(t *testing.T) {
	store := NewStore(transport.Categories)
	assert.Equal(t, ScreenStatusLoading, store.Snapshot().Screen.Status)

	store.BeginCycle()
	store.ReportError(context.Background(), errors.New("backend unreachable"))

	sequence := store.NextSequence(transport.TransportTypeEscooter)
	store.ApplyEntries(transport.TransportTypeEscooter, sequence, nil)

	screen := store.Snapshot().Screen
	assert.Equal(t, ScreenStatusError, screen.Status)
	assert.Equal(t, "backend unreachable", screen.Message)

	store.BeginCycle()
	assert.Equal(t, ScreenStatusLoading, store.Snapshot().Screen.Status)

	sequence = store.NextSequence(transport.TransportTypeEscooter)
	store.ApplyEntries(transport.TransportTypeEscooter, sequence, nil)
	assert.Equal(t, ScreenStatusContent, store.Snapshot().Screen.Status)
}

func TestStoreResetSession(t *testing.T) {
	store := NewStore(transport.Categories)

	sequence := store.NextSequence(transport.TransportTypeTaxi)
	store.ApplyEntries(transport.TransportTypeTaxi, sequence, []transport.TransportData{{Title: "Taxi Ruf"}})
	store.ReplaceMarkers(transport.TransportTypeTaxi, sequence, []MarkerOption{{ID: "m1"}})

	store.ResetSession()

	state, _ := store.Category(transport.TransportTypeTaxi)
	assert.False(t, state.Loaded)
	assert.Empty(t, store.Markers())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	store := NewStore(transport.Categories)

	sequence := store.NextSequence(transport.TransportTypeTaxi)
	store.ApplyEntries(transport.TransportTypeTaxi, sequence, []transport.TransportData{
		{Title: "Taxi Ruf", AvailableOptions: []transport.TransportOption{{ID: "t1"}}},
	})

	snapshot := store.Snapshot()
	require.Len(t, snapshot.Categories, len(transport.Categories))
	assert.Equal(t, transport.TransportTypePublicTransport, snapshot.Categories[0].Category)

	taxi := snapshot.Categories[3]
	require.Len(t, taxi.Entries, 1)
	taxi.Entries[0].AvailableOptions[0].ID = "changed"

	state, _ := store.Category(transport.TransportTypeTaxi)
	assert.Equal(t, "t1", state.Entries[0].AvailableOptions[0].ID)
}

func TestSubscribe(t *testing.T) {
	store := NewStore(transport.Categories)

	updates, unsubscribe := store.Subscribe()

	store.SetUserLocation(testLocation, true)
	store.BeginCycle()

	snapshot := <-updates
	assert.True(t, snapshot.UserLocationFound)
	assert.Equal(t, ScreenStatusLoading, snapshot.Screen.Status)
	assert.Equal(t, uint64(2), snapshot.Version)

	unsubscribe()
	_, open := <-updates
	assert.False(t, open)

	unsubscribe()
	store.BeginCycle()
}

func TestRefresherUsesInitialLocationWithoutDevice(t *testing.T) {
	fetcher := &fakeFetcher{}
	orchestrator := newTestOrchestrator(fetcher, &fakeIcons{})
	device := location.NewDeviceLocation(0)

	refresher := NewRefresher(orchestrator, device, testLocation, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(fetcher.Requests()) == len(transport.Categories)
	}, time.Second, 10*time.Millisecond)
	assert.False(t, orchestrator.Store.Snapshot().UserLocationFound)

	pushed := transport.TransportLocation{Latitude: 51.2562, Longitude: 7.1508}
	require.NoError(t, device.Update(pushed))
	refresher.Trigger()

	assert.Eventually(t, func() bool {
		return len(fetcher.Requests()) == 2*len(transport.Categories)
	}, time.Second, 10*time.Millisecond)

	requests := fetcher.Requests()
	assert.Equal(t, testLocation.Latitude, requests[0].Lat)
	assert.Equal(t, pushed.Latitude, requests[len(requests)-1].Lat)

	snapshot := orchestrator.Store.Snapshot()
	assert.True(t, snapshot.UserLocationFound)
	assert.Equal(t, pushed, snapshot.UserLocation)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func newReportingClient(store *Store, url string) *mobilityapi.Client {
	return &mobilityapi.Client{
		BaseURL: url,
		RequestHandler: requesthandler.New(requesthandler.Config{
			MaxRetries:      0,
			InitialInterval: time.Millisecond,
			MaxElapsedTime:  time.Second,
		}, store),
	}
}

func TestStaleFailureDoesNotOverrideNewerContent(t *testing.T) {
	firstArrived := make(chan struct{})
	releaseFirst := make(chan struct{})
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			close(firstArrived)
			<-releaseFirst
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Write([]byte(`[{"type": "taxi", "title": "Taxi Ruf"}]`))
	}))
	defer server.Close()

	orchestrator := newTestOrchestrator(&fakeFetcher{}, &fakeIcons{})
	orchestrator.Fetcher = newReportingClient(orchestrator.Store, server.URL)

	firstResult := make(chan error, 1)
	go func() {
		firstResult <- orchestrator.FetchForType(context.Background(), transport.TransportTypeTaxi, testLocation)
	}()
	<-firstArrived

	require.NoError(t, orchestrator.FetchForType(context.Background(), transport.TransportTypeTaxi, testLocation))

	close(releaseFirst)
	assert.NoError(t, <-firstResult)

	snapshot := orchestrator.Store.Snapshot()
	assert.Equal(t, ScreenStatusContent, snapshot.Screen.Status)
	assert.Empty(t, snapshot.Screen.Message)

	taxi := categoryState(t, orchestrator.Store, transport.TransportTypeTaxi)
	assert.Empty(t, taxi.Error)
	assert.Equal(t, uint64(2), taxi.Sequence)
	require.Len(t, taxi.Entries, 1)
	assert.Equal(t, "Taxi Ruf", taxi.Entries[0].Title)
}

func TestCurrentFailureSetsScreenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	orchestrator := newTestOrchestrator(&fakeFetcher{}, &fakeIcons{})
	orchestrator.Fetcher = newReportingClient(orchestrator.Store, server.URL)

	assert.Error(t, orchestrator.FetchForType(context.Background(), transport.TransportTypeTaxi, testLocation))

	snapshot := orchestrator.Store.Snapshot()
	assert.Equal(t, ScreenStatusError, snapshot.Screen.Status)

	taxi := categoryState(t, orchestrator.Store, transport.TransportTypeTaxi)
	assert.True(t, taxi.Loaded)
	assert.NotEmpty(t, taxi.Error)
}

func TestRefresherTicksWithoutTrigger(t *testing.T) {
	fetcher := &fakeFetcher{}
	orchestrator := newTestOrchestrator(fetcher, &fakeIcons{})

	refresher := NewRefresher(orchestrator, nil, testLocation, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(fetcher.Requests()) >= 3*len(transport.Categories)
	}, 2*time.Second, 10*time.Millisecond)

	refresher.Trigger()

	assert.Eventually(t, func() bool {
		return len(fetcher.Requests()) >= 5*len(transport.Categories)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
