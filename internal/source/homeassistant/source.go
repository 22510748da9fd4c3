// LOCATION: internal/source/homeassistant/source.go
//
// Collector sources backed by the Home Assistant client. The client is
// rebuilt from database settings on every poll so URL/token changes
// made through the API take effect without a restart.

package homeassistant

import (
	"context"
	"time"

	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/model"
	"github.com/77degrees/climate-analyzer/internal/store"
)

var log = logging.Component("homeassistant")

// Store is the slice of the database the sources need.
type Store interface {
	GetSettingOr(ctx context.Context, key, fallback string) string
	TrackedSensors(ctx context.Context) ([]model.Sensor, error)
	InsertReadingsBatch(ctx context.Context, readings []model.Sample) error
	UpsertDiscoveredSensor(ctx context.Context, sensor *model.Sensor) (bool, error)
}

// clientFor builds a client from stored settings. Nil when Home
// Assistant is not configured yet.
func clientFor(ctx context.Context, st Store, timeout time.Duration) *Client {
	url := st.GetSettingOr(ctx, store.SettingHAURL, "")
	token := st.GetSettingOr(ctx, store.SettingHAToken, "")
	if url == "" || token == "" {
		return nil
	}
	return NewClient(url, token, timeout)
}

// =============================================================================
// Readings Source
// =============================================================================

// ReadingsSource samples every tracked entity's current state into the
// readings table.
type ReadingsSource struct {
	store    Store
	interval time.Duration
	timeout  time.Duration
}

// NewReadingsSource creates the reading poll source.
func NewReadingsSource(st Store, interval, timeout time.Duration) *ReadingsSource {
	return &ReadingsSource{store: st, interval: interval, timeout: timeout}
}

func (s *ReadingsSource) Name() string            { return "ha-readings" }
func (s *ReadingsSource) Interval() time.Duration { return s.interval }

// Poll fetches all states and writes one reading per tracked sensor.
// All readings in a batch share one timestamp so window queries line up
// across sensors.
func (s *ReadingsSource) Poll(ctx context.Context) (int, error) {
	client := clientFor(ctx, s.store, s.timeout)
	if client == nil {
		log.Debug("not configured, skipping collection")
		return 0, nil
	}

	states, err := client.GetStates(ctx)
	if err != nil {
		return 0, err
	}

	sensors, err := s.store.TrackedSensors(ctx)
	if err != nil {
		return 0, err
	}
	tracked := make(map[string]*model.Sensor, len(sensors))
	for i := range sensors {
		tracked[sensors[i].EntityID] = &sensors[i]
	}

	now := time.Now().UTC()
	var batch []model.Sample

	for i := range states {
		state := &states[i]
		sensor, ok := tracked[state.EntityID]
		if !ok {
			continue
		}

		switch state.Domain() {
		case model.DomainClimate:
			batch = append(batch, ParseClimate(state, sensor.ID, now))
		case model.DomainSensor:
			batch = append(batch, ParseSensor(state, sensor.ID, now))
		case model.DomainBinarySensor:
			batch = append(batch, ParseBinarySensor(state, sensor.ID, now))
		}
	}

	if err := s.store.InsertReadingsBatch(ctx, batch); err != nil {
		return 0, err
	}

	log.Info("collected readings", "count", len(batch))
	return len(batch), nil
}

// =============================================================================
// Discovery Source
// =============================================================================

// DiscoverySource scans for climate-relevant entities and upserts them
// into the sensors table. Existing sensors get their friendly name
// refreshed; new ones are created untracked unless they are thermostats
// or weather entities.
type DiscoverySource struct {
	store    Store
	interval time.Duration
	timeout  time.Duration
}

// NewDiscoverySource creates the discovery poll source.
func NewDiscoverySource(st Store, interval, timeout time.Duration) *DiscoverySource {
	return &DiscoverySource{store: st, interval: interval, timeout: timeout}
}

func (s *DiscoverySource) Name() string            { return "ha-discovery" }
func (s *DiscoverySource) Interval() time.Duration { return s.interval }

// Poll runs one discovery scan, returning the number of new sensors.
func (s *DiscoverySource) Poll(ctx context.Context) (int, error) {
	client := clientFor(ctx, s.store, s.timeout)
	if client == nil {
		log.Debug("not configured, skipping discovery")
		return 0, nil
	}

	states, err := client.GetStates(ctx)
	if err != nil {
		return 0, err
	}

	newCount := 0
	relevant := ClimateEntities(states)

	for i := range relevant {
		sensor := DiscoverSensor(&relevant[i])
		created, err := s.store.UpsertDiscoveredSensor(ctx, &sensor)
		if err != nil {
			return newCount, err
		}
		if created {
			newCount++
			log.Info("discovered sensor",
				"entity_id", sensor.EntityID,
				"name", sensor.FriendlyName)
		}
	}

	log.Info("discovery complete", "new", newCount, "total", len(relevant))
	return newCount, nil
}
