package nws

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

func f(v float64) *float64 { return &v }

func TestCToF(t *testing.T) {
	tests := []struct {
		in   *float64
		want *float64
	}{
		{f(0), f(32.0)},
		{f(100), f(212.0)},
		{f(35.6), f(96.1)},
		{f(-17.8), f(0.0)},
		{nil, nil},
	}
	for _, tt := range tests {
		got := CToF(tt.in)
		if (got == nil) != (tt.want == nil) {
			t.Errorf("CToF(%v) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		if got != nil && *got != *tt.want {
			t.Errorf("CToF(%v) = %v, want %v", *tt.in, *got, *tt.want)
		}
	}
}

func TestKphToMph(t *testing.T) {
	if got := KphToMph(f(100)); *got != 62.1 {
		t.Errorf("got %v", *got)
	}
	if got := KphToMph(nil); got != nil {
		t.Errorf("nil in should be nil out, got %v", got)
	}
}

func TestPaToInHg(t *testing.T) {
	// Standard atmosphere.
	if got := PaToInHg(f(101325)); *got != 29.92 {
		t.Errorf("got %v", *got)
	}
	if got := PaToInHg(nil); got != nil {
		t.Errorf("nil in should be nil out, got %v", got)
	}
}

// nwsServer fakes the points/stations/observations endpoints.
func nwsServer(t *testing.T, obsTimestamp string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request missing User-Agent")
		}
		switch {
		case r.URL.Path == "/points/30.5788,-97.8531":
			fmt.Fprintf(w, `{"properties":{"observationStations":"%s/gridpoints/EWX/stations"}}`, srv.URL)
		case r.URL.Path == "/gridpoints/EWX/stations":
			fmt.Fprint(w, `{"features":[{"properties":{"stationIdentifier":"KAUS"}},{"properties":{"stationIdentifier":"KATT"}}]}`)
		case r.URL.Path == "/stations/KAUS/observations/latest":
			fmt.Fprintf(w, `{"properties":{
				"timestamp":"%s",
				"temperature":{"value":35.6},
				"relativeHumidity":{"value":42.0},
				"windSpeed":{"value":14.8},
				"textDescription":"Sunny",
				"barometricPressure":{"value":101325},
				"dewpoint":{"value":20.0},
				"heatIndex":{"value":null}
			}}`, obsTimestamp)
		case r.URL.Path == "/stations/KEMPTY/observations/latest":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv
}

func TestClient_ResolveStation(t *testing.T) {
	srv := nwsServer(t, "2025-07-14T12:00:00Z")
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	id, err := c.ResolveStation(context.Background(), 30.5788, -97.8531)
	if err != nil {
		t.Fatalf("ResolveStation: %v", err)
	}
	if id != "KAUS" {
		t.Errorf("station: got %q, want KAUS", id)
	}
}

func TestClient_LatestObservation(t *testing.T) {
	srv := nwsServer(t, "2025-07-14T12:00:00Z")
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	obs, err := c.LatestObservation(context.Background(), "KAUS")
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if obs == nil {
		t.Fatal("expected an observation")
	}

	want := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	if !obs.Timestamp.Equal(want) {
		t.Errorf("timestamp: %v", obs.Timestamp)
	}
	if obs.Temperature == nil || *obs.Temperature != 96.1 {
		t.Errorf("temperature: %v", obs.Temperature)
	}
	if obs.Humidity == nil || *obs.Humidity != 42.0 {
		t.Errorf("humidity: %v", obs.Humidity)
	}
	if obs.WindSpeed == nil || *obs.WindSpeed != 9.2 {
		t.Errorf("wind: %v", obs.WindSpeed)
	}
	if obs.Pressure == nil || *obs.Pressure != 29.92 {
		t.Errorf("pressure: %v", obs.Pressure)
	}
	if obs.Condition == nil || *obs.Condition != "Sunny" {
		t.Errorf("condition: %v", obs.Condition)
	}
	if obs.HeatIndex != nil {
		t.Errorf("null heat index should stay nil: %v", obs.HeatIndex)
	}
	if obs.Source != "nws" {
		t.Errorf("source: %q", obs.Source)
	}
}

func TestClient_LatestObservation_NoStation(t *testing.T) {
	srv := nwsServer(t, "2025-07-14T12:00:00Z")
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	obs, err := c.LatestObservation(context.Background(), "KEMPTY")
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if obs != nil {
		t.Errorf("404 should yield nil observation, got %+v", obs)
	}
}

// fakeWeatherStore implements Store in memory.
type fakeWeatherStore struct {
	settings map[string]string
	stored   []model.WeatherObservation
}

func (f *fakeWeatherStore) GetSettingOr(_ context.Context, key, fallback string) string {
	if v, ok := f.settings[key]; ok {
		return v
	}
	return fallback
}

func (f *fakeWeatherStore) SetSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeWeatherStore) InsertWeather(_ context.Context, obs *model.WeatherObservation) error {
	f.stored = append(f.stored, *obs)
	return nil
}

func (f *fakeWeatherStore) LatestWeather(context.Context) (*model.WeatherObservation, error) {
	if len(f.stored) == 0 {
		return nil, nil
	}
	return &f.stored[len(f.stored)-1], nil
}

func TestWeatherSource_PollResolvesAndDedupes(t *testing.T) {
	srv := nwsServer(t, "2025-07-14T12:00:00Z")
	defer srv.Close()

	fake := &fakeWeatherStore{settings: map[string]string{}}
	src := NewWeatherSource(fake, NewClient(srv.URL, time.Second), 15*time.Minute, 30.5788, -97.8531)

	if src.Name() != "nws-weather" {
		t.Errorf("name: %q", src.Name())
	}

	n, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 || len(fake.stored) != 1 {
		t.Fatalf("first poll should store one observation: n=%d stored=%d", n, len(fake.stored))
	}

	// Station ID persisted for later polls.
	if fake.settings["nws_station_id"] != "KAUS" {
		t.Errorf("station setting: %q", fake.settings["nws_station_id"])
	}

	// Same observation timestamp on the next poll gets skipped.
	n, err = src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 0 || len(fake.stored) != 1 {
		t.Errorf("duplicate observation should be skipped: n=%d stored=%d", n, len(fake.stored))
	}
}

func TestWeatherSource_PinnedStation(t *testing.T) {
	srv := nwsServer(t, "2025-07-14T12:20:00Z")
	defer srv.Close()

	fake := &fakeWeatherStore{settings: map[string]string{"nws_station_id": "KAUS"}}
	src := NewWeatherSource(fake, NewClient(srv.URL, time.Second), 15*time.Minute, 0, 0)

	n, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 observation, got %d", n)
	}
}
