// Package model defines the shared data shapes consumed by every other
// package: sensor readings, weather observations, and the sensor/zone
// bookkeeping records they hang off.
//
// Optional fields are pointers. A nil pointer means the upstream source
// did not report the field; once present, values are assumed well-typed
// (ingestion is responsible for numeric sanity, with one exception noted
// in the engine's struggle scorer).
package model

import "time"

// =============================================================================
// HVAC Action - thermostat activity state reported per sample
// =============================================================================

const (
	// ActionHeating indicates the system is actively heating.
	ActionHeating = "heating"

	// ActionCooling indicates the system is actively cooling.
	ActionCooling = "cooling"

	// ActionIdle indicates the system is on but not running.
	ActionIdle = "idle"

	// ActionOff indicates the system is off.
	ActionOff = "off"
)

// ValidActions contains all reported HVAC action values.
var ValidActions = []string{ActionHeating, ActionCooling, ActionIdle, ActionOff}

// IsActiveAction reports whether the action represents a running system.
// Only heating and cooling open recovery runs.
func IsActiveAction(action string) bool {
	return action == ActionHeating || action == ActionCooling
}

// =============================================================================
// Sensor Domains
// =============================================================================

const (
	// DomainClimate covers thermostat entities (climate.*).
	DomainClimate = "climate"

	// DomainSensor covers plain numeric sensors (sensor.*).
	DomainSensor = "sensor"

	// DomainBinarySensor covers on/off sensors stored as 1.0/0.0.
	DomainBinarySensor = "binary_sensor"

	// DomainWeather covers weather entities (weather.*).
	DomainWeather = "weather"
)

// =============================================================================
// Core Records
// =============================================================================

// Sample is a single environmental/HVAC reading for one sensor.
//
// Samples are immutable once recorded and ordered by timestamp within a
// sensor. The cadence is configurable upstream (commonly 5 minutes); the
// engine never assumes a fixed cadence except where documented.
type Sample struct {
	SensorID  int64     `json:"sensor_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value,omitempty"`

	// HVAC fields, present only for climate entities.
	HVACAction   *string  `json:"hvac_action,omitempty"`
	HVACMode     *string  `json:"hvac_mode,omitempty"`
	SetpointHeat *float64 `json:"setpoint_heat,omitempty"`
	SetpointCool *float64 `json:"setpoint_cool,omitempty"`
	FanMode      *string  `json:"fan_mode,omitempty"`
}

// Action returns the HVAC action or "" when absent.
func (s *Sample) Action() string {
	if s.HVACAction == nil {
		return ""
	}
	return *s.HVACAction
}

// WeatherObservation is one outdoor weather report. It is an independent
// series, not tied to any sensor; the engine joins it to readings by
// nearest-prior instant or by calendar day.
type WeatherObservation struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	WindSpeed   *float64  `json:"wind_speed,omitempty"`
	Condition   *string   `json:"condition,omitempty"`
	Pressure    *float64  `json:"pressure,omitempty"`
	Dewpoint    *float64  `json:"dewpoint,omitempty"`
	HeatIndex   *float64  `json:"heat_index,omitempty"`
}

// =============================================================================
// Bookkeeping Records
// =============================================================================

// Sensor is a tracked entity (thermostat, temperature/humidity sensor,
// weather entity) discovered from Home Assistant or configured manually.
type Sensor struct {
	ID           int64    `json:"id"`
	EntityID     string   `json:"entity_id"`
	FriendlyName string   `json:"friendly_name"`
	Domain       string   `json:"domain"`
	DeviceClass  *string  `json:"device_class,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	ZoneID       *int64   `json:"zone_id,omitempty"`
	IsOutdoor    bool     `json:"is_outdoor"`
	IsTracked    bool     `json:"is_tracked"`
}

// Zone groups sensors for cross-sensor rollups and dashboard cards.
type Zone struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
