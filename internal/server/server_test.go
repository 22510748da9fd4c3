package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/77degrees/climate-analyzer/internal/cache"
	"github.com/77degrees/climate-analyzer/internal/engine"
	"github.com/77degrees/climate-analyzer/internal/model"
	"github.com/77degrees/climate-analyzer/internal/store"
)

// newTestServer wires a server onto an in-memory database.
func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	st, err := store.New(store.DefaultConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := engine.New(st, st, engine.DefaultParams())
	srv := New(Config{}, st, eng, cache.New(cache.Config{}), nil)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func sendJSON(t *testing.T, method, url string, body, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestServer_Healthz(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	if status := getJSON(t, ts.URL+"/healthz", &body); status != http.StatusOK {
		t.Fatalf("status: %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestServer_SummaryWithoutSensors(t *testing.T) {
	ts, _ := newTestServer(t)

	var summary engine.Summary
	if status := getJSON(t, ts.URL+"/api/metrics/summary", &summary); status != http.StatusOK {
		t.Fatalf("status: %d", status)
	}
	if summary.EfficiencyScore != 0 {
		t.Errorf("empty database should yield a zero summary: %+v", summary)
	}
}

func TestServer_MetricWindowValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, query := range []string{"days=0", "days=400", "sensor_id=-1"} {
		if status := getJSON(t, ts.URL+"/api/metrics/duty-cycle?"+query, nil); status != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", query, status)
		}
	}
}

func TestServer_MetricsForSensor(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	sensor := model.Sensor{EntityID: "climate.main", FriendlyName: "Main", Domain: model.DomainClimate, IsTracked: true}
	if err := st.CreateSensor(ctx, &sensor); err != nil {
		t.Fatalf("create sensor: %v", err)
	}

	// One hour of cooling, one of idle, ending now.
	base := time.Now().UTC().Add(-2 * time.Hour)
	var batch []model.Sample
	for i := 0; i < 24; i++ {
		action := model.ActionCooling
		if i >= 12 {
			action = model.ActionIdle
		}
		batch = append(batch, model.Sample{
			SensorID:   sensor.ID,
			Timestamp:  base.Add(time.Duration(i) * 5 * time.Minute),
			Value:      model.Float(74),
			HVACAction: &action,
		})
	}
	if err := st.InsertReadingsBatch(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var days []engine.DutyCycleDay
	if status := getJSON(t, ts.URL+"/api/metrics/duty-cycle?days=1", &days); status != http.StatusOK {
		t.Fatalf("status: %d", status)
	}
	if len(days) == 0 {
		t.Fatal("expected at least one duty-cycle day")
	}

	total := 0.0
	for _, d := range days {
		total += d.CoolingPct
	}
	if total == 0 {
		t.Error("cooling percentage should be non-zero")
	}

	var summary engine.Summary
	if status := getJSON(t, ts.URL+"/api/metrics/summary?days=1", &summary); status != http.StatusOK {
		t.Fatalf("summary status: %d", status)
	}
}

func TestServer_ZoneLifecycle(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	var zone model.Zone
	status := sendJSON(t, http.MethodPost, ts.URL+"/api/zones",
		map[string]interface{}{"name": "Upstairs", "color": "#ff8800"}, &zone)
	if status != http.StatusCreated {
		t.Fatalf("create status: %d", status)
	}
	if zone.ID == 0 || zone.Name != "Upstairs" {
		t.Fatalf("zone: %+v", zone)
	}

	// Missing name is rejected.
	if status := sendJSON(t, http.MethodPost, ts.URL+"/api/zones",
		map[string]interface{}{"color": "#fff"}, nil); status != http.StatusBadRequest {
		t.Errorf("create without name: status %d", status)
	}

	var patched model.Zone
	status = sendJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/zones/%d", ts.URL, zone.ID),
		map[string]interface{}{"name": "Second Floor"}, &patched)
	if status != http.StatusOK || patched.Name != "Second Floor" {
		t.Fatalf("patch: status %d zone %+v", status, patched)
	}

	// Zone rollup with a member sensor.
	sensor := model.Sensor{
		EntityID: "sensor.up_temp", FriendlyName: "Up Temp",
		Domain: model.DomainSensor, DeviceClass: model.String("temperature"),
		ZoneID: &zone.ID, IsTracked: true,
	}
	if err := st.CreateSensor(ctx, &sensor); err != nil {
		t.Fatalf("create sensor: %v", err)
	}
	if err := st.InsertReading(ctx, &model.Sample{
		SensorID: sensor.ID, Timestamp: time.Now().UTC(), Value: model.Float(71.5),
	}); err != nil {
		t.Fatalf("insert reading: %v", err)
	}

	var snapshot engine.ZoneSnapshot
	status = getJSON(t, fmt.Sprintf("%s/api/zones/%d/current", ts.URL, zone.ID), &snapshot)
	if status != http.StatusOK {
		t.Fatalf("current status: %d", status)
	}
	if snapshot.AvgTemp == nil || *snapshot.AvgTemp != 71.5 {
		t.Errorf("avg temp: %v", snapshot.AvgTemp)
	}

	var deleted map[string]bool
	status = sendJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/zones/%d", ts.URL, zone.ID), map[string]string{}, &deleted)
	if status != http.StatusOK || !deleted["deleted"] {
		t.Fatalf("delete: status %d body %v", status, deleted)
	}

	if status := getJSON(t, fmt.Sprintf("%s/api/zones/%d/current", ts.URL, zone.ID), nil); status != http.StatusNotFound {
		t.Errorf("current after delete: status %d, want 404", status)
	}
}

func TestServer_SensorPatch(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	zone := model.Zone{Name: "Attic"}
	if err := st.CreateZone(ctx, &zone); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	sensor := model.Sensor{EntityID: "sensor.attic", FriendlyName: "Attic", Domain: model.DomainSensor}
	if err := st.CreateSensor(ctx, &sensor); err != nil {
		t.Fatalf("create sensor: %v", err)
	}

	var patched model.Sensor
	status := sendJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/sensors/%d", ts.URL, sensor.ID),
		map[string]interface{}{"is_tracked": true, "zone_id": zone.ID, "friendly_name": "Attic Air"}, &patched)
	if status != http.StatusOK {
		t.Fatalf("patch status: %d", status)
	}
	if !patched.IsTracked || patched.ZoneID == nil || *patched.ZoneID != zone.ID || patched.FriendlyName != "Attic Air" {
		t.Fatalf("patched: %+v", patched)
	}

	// zone_id 0 detaches.
	status = sendJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/sensors/%d", ts.URL, sensor.ID),
		map[string]interface{}{"zone_id": 0}, &patched)
	if status != http.StatusOK || patched.ZoneID != nil {
		t.Fatalf("detach: status %d zone %v", status, patched.ZoneID)
	}

	// Unknown zone is a 404.
	status = sendJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/sensors/%d", ts.URL, sensor.ID),
		map[string]interface{}{"zone_id": 999}, nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown zone: status %d", status)
	}

	if status := sendJSON(t, http.MethodPatch, ts.URL+"/api/sensors/999",
		map[string]interface{}{"is_tracked": true}, nil); status != http.StatusNotFound {
		t.Errorf("unknown sensor: status %d", status)
	}
}

func TestServer_Settings(t *testing.T) {
	ts, _ := newTestServer(t)

	var out SettingsOut
	if status := getJSON(t, ts.URL+"/api/settings", &out); status != http.StatusOK {
		t.Fatalf("get status: %d", status)
	}
	if out.HATokenSet {
		t.Error("token should be unset initially")
	}

	status := sendJSON(t, http.MethodPut, ts.URL+"/api/settings",
		map[string]interface{}{"ha_url": "http://ha.local:8123", "ha_token": "secret", "nws_station_id": "KAUS"}, &out)
	if status != http.StatusOK {
		t.Fatalf("put status: %d", status)
	}
	if out.HAURL != "http://ha.local:8123" || !out.HATokenSet || out.NWSStationID != "KAUS" {
		t.Fatalf("settings: %+v", out)
	}

	// Moving the coordinates clears the pinned station.
	status = sendJSON(t, http.MethodPut, ts.URL+"/api/settings",
		map[string]interface{}{"nws_lat": 29.42, "nws_lon": -98.49}, &out)
	if status != http.StatusOK {
		t.Fatalf("put status: %d", status)
	}
	if out.NWSStationID != "" {
		t.Errorf("station should be cleared after coordinate change: %q", out.NWSStationID)
	}
	if out.NWSLat != 29.42 || out.NWSLon != -98.49 {
		t.Errorf("coords: %v,%v", out.NWSLat, out.NWSLon)
	}

	if status := sendJSON(t, http.MethodPut, ts.URL+"/api/settings",
		map[string]interface{}{"nws_lat": 123.0}, nil); status != http.StatusBadRequest {
		t.Errorf("out-of-range latitude: status %d", status)
	}
}

func TestServer_ReadingsAndWeather(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	sensor := model.Sensor{
		EntityID: "sensor.office", FriendlyName: "Office",
		Domain: model.DomainSensor, DeviceClass: model.String("temperature"), IsTracked: true,
	}
	if err := st.CreateSensor(ctx, &sensor); err != nil {
		t.Fatalf("create sensor: %v", err)
	}

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := st.InsertReading(ctx, &model.Sample{
			SensorID: sensor.ID, Timestamp: now.Add(time.Duration(-i) * time.Hour), Value: model.Float(70 + float64(i)),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := st.InsertWeather(ctx, &model.WeatherObservation{
		Timestamp: now, Source: "nws", Temperature: model.Float(88.3),
	}); err != nil {
		t.Fatalf("insert weather: %v", err)
	}

	var series []SensorReadings
	if status := getJSON(t, ts.URL+"/api/readings?hours=6", &series); status != http.StatusOK {
		t.Fatalf("readings status: %d", status)
	}
	if len(series) != 1 || len(series[0].Readings) != 3 {
		t.Fatalf("series: %+v", series)
	}

	// device_class filter excludes non-matching sensors.
	var filtered []SensorReadings
	getJSON(t, ts.URL+"/api/readings?device_class=humidity", &filtered)
	if len(filtered) != 0 {
		t.Errorf("humidity filter should match nothing: %+v", filtered)
	}

	var latest []LatestReading
	if status := getJSON(t, ts.URL+"/api/readings/latest", &latest); status != http.StatusOK {
		t.Fatalf("latest status: %d", status)
	}
	if len(latest) != 1 || latest[0].Value == nil || *latest[0].Value != 70 {
		t.Fatalf("latest: %+v", latest)
	}

	var current model.WeatherObservation
	if status := getJSON(t, ts.URL+"/api/weather/current", &current); status != http.StatusOK {
		t.Fatalf("weather status: %d", status)
	}
	if current.Temperature == nil || *current.Temperature != 88.3 {
		t.Errorf("weather: %+v", current)
	}
}

func TestServer_Dashboard(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	thermostat := model.Sensor{EntityID: "climate.main", FriendlyName: "Main", Domain: model.DomainClimate, IsTracked: true}
	if err := st.CreateSensor(ctx, &thermostat); err != nil {
		t.Fatalf("create sensor: %v", err)
	}
	cooling := model.ActionCooling
	if err := st.InsertReading(ctx, &model.Sample{
		SensorID: thermostat.ID, Timestamp: time.Now().UTC(),
		Value: model.Float(73), HVACAction: &cooling, SetpointCool: model.Float(72),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.InsertWeather(ctx, &model.WeatherObservation{
		Timestamp: time.Now().UTC(), Source: "nws", Temperature: model.Float(95),
	}); err != nil {
		t.Fatalf("insert weather: %v", err)
	}

	var data DashboardData
	if status := getJSON(t, ts.URL+"/api/dashboard", &data); status != http.StatusOK {
		t.Fatalf("status: %d", status)
	}

	if data.Stats.IndoorTemp == nil || *data.Stats.IndoorTemp != 73 {
		t.Errorf("indoor: %v", data.Stats.IndoorTemp)
	}
	if data.Stats.OutdoorTemp == nil || *data.Stats.OutdoorTemp != 95 {
		t.Errorf("outdoor: %v", data.Stats.OutdoorTemp)
	}
	if data.Stats.Delta == nil || *data.Stats.Delta != -22 {
		t.Errorf("delta: %v", data.Stats.Delta)
	}
	if len(data.HVACStatuses) != 1 || data.HVACStatuses[0].HVACAction == nil || *data.HVACStatuses[0].HVACAction != "cooling" {
		t.Errorf("statuses: %+v", data.HVACStatuses)
	}
}

func TestServer_Stats(t *testing.T) {
	ts, _ := newTestServer(t)

	var stats StatsResponse
	if status := getJSON(t, ts.URL+"/api/stats", &stats); status != http.StatusOK {
		t.Fatalf("status: %d", status)
	}
	if stats.Database == nil {
		t.Fatal("expected database stats")
	}
	if stats.Sources == nil {
		t.Error("sources should be an empty list, not null")
	}
}
