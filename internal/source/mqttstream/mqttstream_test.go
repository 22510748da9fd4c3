package mqttstream

import (
	"context"
	"testing"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

type fakeStore struct {
	sensors  map[string]*model.Sensor
	readings []model.Sample
}

func (f *fakeStore) GetSensorByEntityID(_ context.Context, entityID string) (*model.Sensor, error) {
	if s, ok := f.sensors[entityID]; ok {
		return s, nil
	}
	return nil, errors.NewNotFound("sensor", entityID)
}

func (f *fakeStore) InsertReading(_ context.Context, r *model.Sample) error {
	f.readings = append(f.readings, *r)
	return nil
}

func TestSubscriber_ParseTopic(t *testing.T) {
	s := New(&fakeStore{}, Config{TopicPrefix: "homeassistant/statestream"})

	tests := []struct {
		topic      string
		wantEntity string
		wantField  string
		wantOK     bool
	}{
		{"homeassistant/statestream/climate/main/hvac_action", "climate.main", "hvac_action", true},
		{"homeassistant/statestream/sensor/attic_temp/state", "sensor.attic_temp", "state", true},
		{"homeassistant/statestream/climate/main", "", "", false},
		{"other/prefix/climate/main/state", "", "", false},
	}
	for _, tt := range tests {
		entity, field, ok := s.parseTopic(tt.topic)
		if ok != tt.wantOK || entity != tt.wantEntity || field != tt.wantField {
			t.Errorf("parseTopic(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.topic, entity, field, ok, tt.wantEntity, tt.wantField, tt.wantOK)
		}
	}
}

func TestCleanPayload(t *testing.T) {
	if got := cleanPayload(`"cooling"`); got != "cooling" {
		t.Errorf("got %q", got)
	}
	if got := cleanPayload(" 72.5 "); got != "72.5" {
		t.Errorf("got %q", got)
	}
}

func TestBuildSample(t *testing.T) {
	tests := []struct {
		name     string
		entityID string
		field    string
		payload  string
		wantOK   bool
		check    func(t *testing.T, s model.Sample)
	}{
		{
			name: "sensor value", entityID: "sensor.attic_temp", field: "state", payload: "94.2", wantOK: true,
			check: func(t *testing.T, s model.Sample) {
				if s.Value == nil || *s.Value != 94.2 {
					t.Errorf("value: %v", s.Value)
				}
			},
		},
		{
			name: "sensor non-numeric", entityID: "sensor.attic_temp", field: "state", payload: "unknown", wantOK: false,
		},
		{
			name: "binary sensor on", entityID: "binary_sensor.fan", field: "state", payload: "on", wantOK: true,
			check: func(t *testing.T, s model.Sample) {
				if s.Value == nil || *s.Value != 1.0 {
					t.Errorf("value: %v", s.Value)
				}
			},
		},
		{
			name: "climate action", entityID: "climate.main", field: "hvac_action", payload: "cooling", wantOK: true,
			check: func(t *testing.T, s model.Sample) {
				if s.HVACAction == nil || *s.HVACAction != "cooling" {
					t.Errorf("action: %v", s.HVACAction)
				}
			},
		},
		{
			name: "climate unavailable mode", entityID: "climate.main", field: "state", payload: "unavailable", wantOK: false,
		},
		{
			name: "single setpoint fills both", entityID: "climate.main", field: "temperature", payload: "72", wantOK: true,
			check: func(t *testing.T, s model.Sample) {
				if s.SetpointHeat == nil || *s.SetpointHeat != 72 || s.SetpointCool == nil || *s.SetpointCool != 72 {
					t.Errorf("setpoints: %v %v", s.SetpointHeat, s.SetpointCool)
				}
			},
		},
		{
			name: "dual setpoint low", entityID: "climate.main", field: "target_temp_low", payload: "68", wantOK: true,
			check: func(t *testing.T, s model.Sample) {
				if s.SetpointHeat == nil || *s.SetpointHeat != 68 || s.SetpointCool != nil {
					t.Errorf("setpoints: %v %v", s.SetpointHeat, s.SetpointCool)
				}
			},
		},
		{
			name: "attribute noise", entityID: "climate.main", field: "friendly_name", payload: "Main Floor", wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample, ok := buildSample(tt.entityID, tt.field, tt.payload)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && tt.check != nil {
				tt.check(t, sample)
			}
		})
	}
}

func TestSubscriber_HandleMessage(t *testing.T) {
	fake := &fakeStore{sensors: map[string]*model.Sensor{
		"climate.main":      {ID: 1, EntityID: "climate.main", IsTracked: true},
		"sensor.untracked":  {ID: 2, EntityID: "sensor.untracked", IsTracked: false},
		"sensor.attic_temp": {ID: 3, EntityID: "sensor.attic_temp", IsTracked: true},
	}}
	s := New(fake, Config{TopicPrefix: "homeassistant/statestream"})
	ctx := context.Background()

	s.handleMessage(ctx, "homeassistant/statestream/climate/main/hvac_action", `"heating"`)
	s.handleMessage(ctx, "homeassistant/statestream/sensor/attic_temp/state", "94.2")
	// Dropped: untracked, unknown entity, attribute noise.
	s.handleMessage(ctx, "homeassistant/statestream/sensor/untracked/state", "1.0")
	s.handleMessage(ctx, "homeassistant/statestream/sensor/ghost/state", "2.0")
	s.handleMessage(ctx, "homeassistant/statestream/climate/main/icon", "mdi:thermostat")

	if len(fake.readings) != 2 {
		t.Fatalf("readings: got %d, want 2", len(fake.readings))
	}
	if fake.readings[0].SensorID != 1 || fake.readings[0].HVACAction == nil || *fake.readings[0].HVACAction != "heating" {
		t.Errorf("first reading: %+v", fake.readings[0])
	}
	if fake.readings[1].SensorID != 3 || fake.readings[1].Value == nil || *fake.readings[1].Value != 94.2 {
		t.Errorf("second reading: %+v", fake.readings[1])
	}
}
