package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type locateCall struct {
	lat, lng float64
}

type stubWeatherAPI struct {
	mu sync.Mutex

	locations   []domain.Location
	locateErr   error
	weather     *domain.Weather
	weatherErr  error
	drone       *domain.DroneData
	droneErr    error
	locateCalls []locateCall
	weatherIDs  []int
	droneCalls  int
}

func (a *stubWeatherAPI) FindLocationByLatLng(_ context.Context, lat, lng float64) ([]domain.Location, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locateCalls = append(a.locateCalls, locateCall{lat: lat, lng: lng})
	return a.locations, a.locateErr
}

func (a *stubWeatherAPI) FindWeatherByID(_ context.Context, woeid int) (*domain.Weather, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.weatherIDs = append(a.weatherIDs, woeid)
	return a.weather, a.weatherErr
}

func (a *stubWeatherAPI) FindDroneLocation(_ context.Context) (*domain.DroneData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.droneCalls++
	return a.drone, a.droneErr
}

// recordingBus keeps subscriptions and records publications without
// dispatching them, so each test drives the loop one step at a time.
type recordingBus struct {
	mu        sync.Mutex
	handlers  map[domain.EventType]ports.EventHandler
	published []domain.Event
	closed    bool
}

func newRecordingBus() *recordingBus {
	return &recordingBus{handlers: make(map[domain.EventType]ports.EventHandler)}
}

func (b *recordingBus) Subscribe(t domain.EventType, h ports.EventHandler) {
	b.handlers[t] = h
}

func (b *recordingBus) SubscribeAll(ports.EventHandler) {}

func (b *recordingBus) Publish(_ context.Context, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.ErrBusClosed
	}
	b.published = append(b.published, ev)
	return nil
}

func (b *recordingBus) deliver(t *testing.T, ctx context.Context, ev domain.Event) error {
	t.Helper()
	h, ok := b.handlers[ev.Type()]
	if !ok {
		t.Fatalf("no handler registered for %s", ev.Type())
	}
	return h(ctx, domain.Envelope{ID: "test", Type: ev.Type(), OccurredAt: time.Now(), Payload: ev})
}

func (b *recordingBus) events() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Event, len(b.published))
	copy(out, b.published)
	return out
}

func newOrchestrator(api *stubWeatherAPI, bus *recordingBus, opts ...OrchestratorOption) *Orchestrator {
	o := NewOrchestrator(api, bus, zerolog.Nop(), opts...)
	o.Register()
	return o
}

func onlyEvent(t *testing.T, bus *recordingBus) domain.Event {
	t.Helper()
	evs := bus.events()
	if len(evs) != 1 {
		t.Fatalf("expected exactly one emitted event, got %d: %+v", len(evs), evs)
	}
	return evs[0]
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestOrchestrator_RegistersEveryHandledType(t *testing.T) {
	bus := newRecordingBus()
	newOrchestrator(&stubWeatherAPI{}, bus)

	for _, typ := range domain.Handled() {
		if _, ok := bus.handlers[typ]; !ok {
			t.Errorf("expected handler for %s", typ)
		}
	}
	if _, ok := bus.handlers[domain.TypeAPIError]; ok {
		t.Error("API_ERROR must not have a handler")
	}
}

func TestOrchestrator_FetchWeather_EmitsFirstLocationID(t *testing.T) {
	api := &stubWeatherAPI{locations: []domain.Location{{WOEID: 123}, {WOEID: 456}}}
	bus := newRecordingBus()
	newOrchestrator(api, bus)

	if err := bus.deliver(t, context.Background(), domain.FetchWeather{Latitude: 40, Longitude: -74}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := onlyEvent(t, bus).(domain.WeatherIDReceived)
	if !ok {
		t.Fatalf("expected WEATHER_ID_RECEIVED, got %T", bus.events()[0])
	}
	if got.ID != 123 {
		t.Errorf("expected id 123, got %d", got.ID)
	}
	if len(api.locateCalls) != 1 || api.locateCalls[0] != (locateCall{lat: 40, lng: -74}) {
		t.Errorf("unexpected locate calls: %+v", api.locateCalls)
	}
}

func TestOrchestrator_FetchWeather_EmptyLocations(t *testing.T) {
	cases := []struct {
		name      string
		locations []domain.Location
	}{
		{"no results", nil},
		{"zero woeid", []domain.Location{{WOEID: 0, Title: "nowhere"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubWeatherAPI{locations: tc.locations}
			bus := newRecordingBus()
			newOrchestrator(api, bus)

			if err := bus.deliver(t, context.Background(), domain.FetchWeather{Latitude: 1, Longitude: 2}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, ok := onlyEvent(t, bus).(domain.APIError)
			if !ok {
				t.Fatalf("expected API_ERROR, got %T", bus.events()[0])
			}
			if got.HasCode() {
				t.Errorf("expected no code, got %d", got.Code)
			}
		})
	}
}

func TestOrchestrator_UpstreamFailures_EmitOnlyAPIErrorWithCode(t *testing.T) {
	upstream := &domain.UpstreamError{Code: 503}

	cases := []struct {
		name string
		api  *stubWeatherAPI
		ev   domain.Event
	}{
		{"fetch weather", &stubWeatherAPI{locateErr: upstream}, domain.FetchWeather{Latitude: 1, Longitude: 2}},
		{"weather id", &stubWeatherAPI{weatherErr: upstream}, domain.WeatherIDReceived{ID: 9}},
		{"fetch drone", &stubWeatherAPI{droneErr: upstream}, domain.FetchDroneData{}},
		{"drone data", &stubWeatherAPI{locateErr: upstream}, domain.DroneDataReceived{Data: domain.DroneData{Data: []domain.DroneReading{{Latitude: 1, Longitude: 2}}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := newRecordingBus()
			newOrchestrator(tc.api, bus)

			if err := bus.deliver(t, context.Background(), tc.ev); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, ok := onlyEvent(t, bus).(domain.APIError)
			if !ok {
				t.Fatalf("expected API_ERROR, got %T", bus.events()[0])
			}
			if got.Code != 503 {
				t.Errorf("expected code 503, got %d", got.Code)
			}
		})
	}
}

func TestOrchestrator_TransportFailure_EmitsAPIErrorWithoutCode(t *testing.T) {
	api := &stubWeatherAPI{droneErr: errors.New("connection refused")}
	bus := newRecordingBus()
	newOrchestrator(api, bus)

	if err := bus.deliver(t, context.Background(), domain.FetchDroneData{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := onlyEvent(t, bus).(domain.APIError)
	if !ok {
		t.Fatalf("expected API_ERROR, got %T", bus.events()[0])
	}
	if got.HasCode() {
		t.Errorf("expected no code, got %d", got.Code)
	}
	if got.Message == "" {
		t.Error("expected message describing the failure")
	}
}

func TestOrchestrator_WeatherDataReceived_WaitsConfiguredDelay(t *testing.T) {
	fire := make(chan time.Time)
	var requested []time.Duration
	var mu sync.Mutex
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		requested = append(requested, d)
		mu.Unlock()
		return fire
	}

	bus := newRecordingBus()
	newOrchestrator(&stubWeatherAPI{}, bus, WithTimer(after))

	done := make(chan error, 1)
	go func() {
		done <- bus.deliver(t, context.Background(), domain.WeatherDataReceived{Data: domain.Weather{WOEID: 1}})
	}()

	// Nothing may be emitted before the timer fires.
	time.Sleep(20 * time.Millisecond)
	if evs := bus.events(); len(evs) != 0 {
		t.Fatalf("expected no events before the delay elapsed, got %+v", evs)
	}

	fire <- time.Now()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := onlyEvent(t, bus).(domain.FetchDroneData); !ok {
		t.Fatalf("expected FETCH_DRONE_DATA, got %T", bus.events()[0])
	}
	mu.Lock()
	defer mu.Unlock()
	if len(requested) != 1 || requested[0] != DefaultRefreshDelay {
		t.Errorf("expected a single %v delay, got %v", DefaultRefreshDelay, requested)
	}
}

func TestOrchestrator_WeatherDataReceived_RealTimerNeverEarly(t *testing.T) {
	const delay = 40 * time.Millisecond
	bus := newRecordingBus()
	newOrchestrator(&stubWeatherAPI{}, bus, WithRefreshDelay(delay))

	start := time.Now()
	if err := bus.deliver(t, context.Background(), domain.WeatherDataReceived{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("emitted after %v, before the %v delay", elapsed, delay)
	}
	if _, ok := onlyEvent(t, bus).(domain.FetchDroneData); !ok {
		t.Fatalf("expected FETCH_DRONE_DATA")
	}
}

func TestOrchestrator_WeatherDataReceived_CancelledContextEmitsNothing(t *testing.T) {
	bus := newRecordingBus()
	newOrchestrator(&stubWeatherAPI{}, bus, WithTimer(func(time.Duration) <-chan time.Time {
		return make(chan time.Time) // never fires
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := bus.deliver(t, ctx, domain.WeatherDataReceived{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evs := bus.events(); len(evs) != 0 {
		t.Errorf("expected no events after cancellation, got %+v", evs)
	}
}

func TestOrchestrator_Scenario_FetchWeatherToWeatherData(t *testing.T) {
	weather := &domain.Weather{
		WOEID:               123,
		Title:               "New York",
		ConsolidatedWeather: []domain.Forecast{{TheTemp: 72}},
	}
	api := &stubWeatherAPI{
		locations: []domain.Location{{WOEID: 123}},
		weather:   weather,
	}
	bus := newRecordingBus()
	newOrchestrator(api, bus)
	ctx := context.Background()

	if err := bus.deliver(t, ctx, domain.FetchWeather{Latitude: 40, Longitude: -74}); err != nil {
		t.Fatalf("fetch weather: %v", err)
	}
	idEv, ok := bus.events()[0].(domain.WeatherIDReceived)
	if !ok || idEv.ID != 123 {
		t.Fatalf("expected WEATHER_ID_RECEIVED{123}, got %+v", bus.events()[0])
	}

	if err := bus.deliver(t, ctx, idEv); err != nil {
		t.Fatalf("weather id: %v", err)
	}
	evs := bus.events()
	if len(evs) != 2 {
		t.Fatalf("expected two events, got %+v", evs)
	}
	dataEv, ok := evs[1].(domain.WeatherDataReceived)
	if !ok {
		t.Fatalf("expected WEATHER_DATA_RECEIVED, got %T", evs[1])
	}
	if cur, _ := dataEv.Data.Current(); cur.TheTemp != 72 {
		t.Errorf("expected temp 72, got %v", cur.TheTemp)
	}
	if len(api.weatherIDs) != 1 || api.weatherIDs[0] != 123 {
		t.Errorf("expected weather lookup for 123, got %v", api.weatherIDs)
	}
}

func TestOrchestrator_Scenario_DroneFetchFails(t *testing.T) {
	api := &stubWeatherAPI{droneErr: &domain.UpstreamError{Code: 500}}
	bus := newRecordingBus()
	newOrchestrator(api, bus)

	if err := bus.deliver(t, context.Background(), domain.FetchDroneData{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := onlyEvent(t, bus).(domain.APIError)
	if !ok || got.Code != 500 {
		t.Fatalf("expected API_ERROR{500}, got %+v", bus.events()[0])
	}
	if len(api.locateCalls) != 0 {
		t.Error("no location lookup expected after a failed drone fetch")
	}
}

func TestOrchestrator_Scenario_DroneLocationUnknown(t *testing.T) {
	api := &stubWeatherAPI{locations: []domain.Location{}}
	bus := newRecordingBus()
	newOrchestrator(api, bus)

	ev := domain.DroneDataReceived{Data: domain.DroneData{Data: []domain.DroneReading{{Latitude: 10, Longitude: 20}}}}
	if err := bus.deliver(t, context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := onlyEvent(t, bus).(domain.APIError)
	if !ok {
		t.Fatalf("expected API_ERROR, got %T", bus.events()[0])
	}
	if got.HasCode() {
		t.Errorf("expected no code, got %d", got.Code)
	}
	if len(api.locateCalls) != 1 || api.locateCalls[0] != (locateCall{lat: 10, lng: 20}) {
		t.Errorf("expected lookup at (10,20), got %+v", api.locateCalls)
	}
}

func TestOrchestrator_DroneDataReceived_ReentersWeatherLookup(t *testing.T) {
	api := &stubWeatherAPI{locations: []domain.Location{{WOEID: 2459115}}}
	bus := newRecordingBus()
	newOrchestrator(api, bus)

	ev := domain.DroneDataReceived{Data: domain.DroneData{Data: []domain.DroneReading{
		{Latitude: 29.7, Longitude: -95.3},
		{Latitude: 0, Longitude: 0},
	}}}
	if err := bus.deliver(t, context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := onlyEvent(t, bus).(domain.WeatherIDReceived)
	if !ok || got.ID != 2459115 {
		t.Fatalf("expected WEATHER_ID_RECEIVED{2459115}, got %+v", bus.events()[0])
	}
	if api.locateCalls[0] != (locateCall{lat: 29.7, lng: -95.3}) {
		t.Errorf("expected lookup of the first reading, got %+v", api.locateCalls[0])
	}
}

func TestOrchestrator_DroneDataReceived_NoReadings(t *testing.T) {
	api := &stubWeatherAPI{}
	bus := newRecordingBus()
	newOrchestrator(api, bus)

	if err := bus.deliver(t, context.Background(), domain.DroneDataReceived{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := onlyEvent(t, bus).(domain.APIError)
	if !ok || got.HasCode() {
		t.Fatalf("expected API_ERROR without code, got %+v", bus.events()[0])
	}
	if len(api.locateCalls) != 0 {
		t.Error("no lookup expected without a reading")
	}
}

func TestOrchestrator_WrongPayload_ReturnsError(t *testing.T) {
	bus := newRecordingBus()
	newOrchestrator(&stubWeatherAPI{}, bus)

	h := bus.handlers[domain.TypeFetchWeather]
	err := h(context.Background(), domain.Envelope{Type: domain.TypeFetchWeather, Payload: domain.FetchDroneData{}})
	if !errors.Is(err, domain.ErrUnexpectedEvent) {
		t.Fatalf("expected ErrUnexpectedEvent, got %v", err)
	}
	if len(bus.events()) != 0 {
		t.Error("expected no emission for a mismatched payload")
	}
}

func TestOrchestrator_PublishFailure_IsReturned(t *testing.T) {
	api := &stubWeatherAPI{locations: []domain.Location{{WOEID: 1}}}
	bus := newRecordingBus()
	bus.closed = true
	newOrchestrator(api, bus)

	err := bus.deliver(t, context.Background(), domain.FetchWeather{})
	if !errors.Is(err, domain.ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}

func TestOrchestrator_EmissionsFollowCycle(t *testing.T) {
	api := &stubWeatherAPI{
		locations: []domain.Location{{WOEID: 7}},
		weather:   &domain.Weather{WOEID: 7},
		drone:     &domain.DroneData{Data: []domain.DroneReading{{Latitude: 1, Longitude: 1}}},
	}
	bus := newRecordingBus()
	newOrchestrator(api, bus, WithRefreshDelay(time.Millisecond))
	ctx := context.Background()

	// Walk the loop twice from FETCH_WEATHER, checking each hop.
	var ev domain.Event = domain.FetchWeather{Latitude: 1, Longitude: 1}
	for i := 0; i < 9; i++ {
		before := len(bus.events())
		if err := bus.deliver(t, ctx, ev); err != nil {
			t.Fatalf("hop %d (%s): %v", i, ev.Type(), err)
		}
		evs := bus.events()
		if len(evs) != before+1 {
			t.Fatalf("hop %d (%s): expected one emission, got %d", i, ev.Type(), len(evs)-before)
		}
		next := evs[len(evs)-1]
		if !domain.CanFollow(ev.Type(), next.Type()) {
			t.Fatalf("hop %d: %s may not follow %s", i, next.Type(), ev.Type())
		}
		if next.Type() == domain.TypeAPIError {
			t.Fatalf("hop %d: unexpected API_ERROR %+v", i, next)
		}
		ev = next
	}
	if api.droneCalls != 2 {
		t.Errorf("expected two drone fetches, got %d", api.droneCalls)
	}
}
