// Package homeassistant polls a Home Assistant instance over its REST
// API. It supplies two collector sources: one that samples tracked
// entity states into readings, and one that discovers new
// climate-relevant entities.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// Client is a Home Assistant REST API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL and long-lived
// access token.
func NewClient(url, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(url, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// State is one entity state from /api/states.
type State struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Domain returns the entity's domain ("climate" from "climate.main").
func (s *State) Domain() string {
	if i := strings.IndexByte(s.EntityID, '.'); i > 0 {
		return s.EntityID[:i]
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, errors.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, errors.ErrProviderAuth)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, errors.ErrProviderUnavailable)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}

// TestConnection checks that the API is reachable and the token works.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.get(ctx, "/api/", nil)
}

// GetStates returns all entity states.
func (c *Client) GetStates(ctx context.Context) ([]State, error) {
	var states []State
	if err := c.get(ctx, "/api/states", &states); err != nil {
		return nil, err
	}
	return states, nil
}

// GetState returns a single entity state.
func (c *Client) GetState(ctx context.Context, entityID string) (*State, error) {
	var state State
	if err := c.get(ctx, "/api/states/"+entityID, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ClimateEntities filters states to climate-relevant entities:
// thermostats, temperature/humidity sensors, and weather entities.
func ClimateEntities(states []State) []State {
	var relevant []State
	for _, s := range states {
		switch s.Domain() {
		case model.DomainClimate, model.DomainWeather:
			relevant = append(relevant, s)
		case model.DomainSensor:
			switch attrString(s.Attributes, "device_class") {
			case "temperature", "humidity":
				relevant = append(relevant, s)
			}
		}
	}
	return relevant
}

// =============================================================================
// State Parsing
// =============================================================================

// ParseClimate extracts a reading from a thermostat state. The value is
// the measured temperature; the mode comes from the entity state and
// the rest from attributes. Single-setpoint thermostats report
// "temperature", dual-setpoint ones report target_temp_low/high.
func ParseClimate(s *State, sensorID int64, ts time.Time) model.Sample {
	single := attrFloat(s.Attributes, "temperature")

	spHeat := attrFloat(s.Attributes, "target_temp_low")
	if spHeat == nil {
		spHeat = single
	}
	spCool := attrFloat(s.Attributes, "target_temp_high")
	if spCool == nil {
		spCool = single
	}

	sample := model.Sample{
		SensorID:     sensorID,
		Timestamp:    ts,
		Value:        attrFloat(s.Attributes, "current_temperature"),
		HVACAction:   attrNonEmpty(s.Attributes, "hvac_action"),
		SetpointHeat: spHeat,
		SetpointCool: spCool,
		FanMode:      attrNonEmpty(s.Attributes, "fan_mode"),
	}
	if s.State != "" && s.State != "unavailable" && s.State != "unknown" {
		mode := s.State
		sample.HVACMode = &mode
	}
	return sample
}

// ParseSensor extracts a reading from a numeric sensor state.
// Non-numeric states ("unavailable", "unknown") yield a nil value.
func ParseSensor(s *State, sensorID int64, ts time.Time) model.Sample {
	sample := model.Sample{
		SensorID:  sensorID,
		Timestamp: ts,
	}
	if v, err := strconv.ParseFloat(s.State, 64); err == nil {
		sample.Value = &v
	}
	return sample
}

// ParseBinarySensor extracts a reading from a binary sensor state,
// stored as 1.0 (on/wet) or 0.0 (off/unknown).
func ParseBinarySensor(s *State, sensorID int64, ts time.Time) model.Sample {
	v := 0.0
	if strings.EqualFold(s.State, "on") {
		v = 1.0
	}
	return model.Sample{
		SensorID:  sensorID,
		Timestamp: ts,
		Value:     &v,
	}
}

// DiscoverSensor builds a sensor record from a discovered entity.
// Thermostats are classified as temperature devices; weather entities
// are marked outdoor. Only thermostats and weather entities start out
// tracked.
func DiscoverSensor(s *State) model.Sensor {
	domain := s.Domain()

	sensor := model.Sensor{
		EntityID:     s.EntityID,
		FriendlyName: s.EntityID,
		Domain:       domain,
		DeviceClass:  attrNonEmpty(s.Attributes, "device_class"),
		Unit:         attrNonEmpty(s.Attributes, "unit_of_measurement"),
		IsOutdoor:    domain == model.DomainWeather,
		IsTracked:    domain == model.DomainClimate || domain == model.DomainWeather,
	}
	if name := attrString(s.Attributes, "friendly_name"); name != "" {
		sensor.FriendlyName = name
	}

	if domain == model.DomainClimate {
		dc := "temperature"
		sensor.DeviceClass = &dc
		unit := attrString(s.Attributes, "temperature_unit")
		if unit == "" {
			unit = "°F"
		}
		sensor.Unit = &unit
	}

	return sensor
}

// =============================================================================
// Attribute Helpers
// =============================================================================

// attrFloat reads a numeric attribute, nil when absent or non-numeric.
func attrFloat(attrs map[string]interface{}, key string) *float64 {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

// attrString reads a string attribute, empty when absent.
func attrString(attrs map[string]interface{}, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

// attrNonEmpty reads a string attribute as an optional.
func attrNonEmpty(attrs map[string]interface{}, key string) *string {
	if v := attrString(attrs, key); v != "" {
		return &v
	}
	return nil
}
