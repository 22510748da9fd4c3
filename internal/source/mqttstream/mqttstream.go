// Package mqttstream ingests Home Assistant statestream updates over
// MQTT. Statestream publishes every state and attribute change to its
// own topic, so between REST polls the readings table still picks up
// thermostat transitions the poller would have missed.
//
// Topic layout: <prefix>/<domain>/<object_id>/<field>, e.g.
//
//	homeassistant/statestream/climate/main/hvac_action  "cooling"
//	homeassistant/statestream/sensor/attic_temp/state   "94.2"
//
// Each message becomes a sparse reading carrying only the changed
// field; the analytics engine already tolerates nil fields.
package mqttstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/model"
)

var log = logging.Component("mqttstream")

// Store is the slice of the database the subscriber needs.
type Store interface {
	GetSensorByEntityID(ctx context.Context, entityID string) (*model.Sensor, error)
	InsertReading(ctx context.Context, r *model.Sample) error
}

// Config holds broker settings.
type Config struct {
	BrokerURL   string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	KeepAlive   uint16
}

// Subscriber consumes statestream updates and writes sparse readings.
type Subscriber struct {
	store Store
	cfg   Config
}

// New creates a subscriber.
func New(store Store, cfg Config) *Subscriber {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "homeassistant/statestream"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "climated"
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 30
	}
	cfg.TopicPrefix = strings.TrimRight(cfg.TopicPrefix, "/")
	return &Subscriber{store: store, cfg: cfg}
}

// Run connects to the broker and consumes updates until the context is
// cancelled. Reconnects are handled by the connection manager.
func (s *Subscriber) Run(ctx context.Context) error {
	broker, err := url.Parse(s.cfg.BrokerURL)
	if err != nil {
		return fmt.Errorf("parse broker url: %w", err)
	}

	topic := s.cfg.TopicPrefix + "/#"

	clientCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     s.cfg.KeepAlive,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			if _, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 0}},
			}); err != nil {
				log.Error("subscribe failed", "topic", topic, "error", err)
				return
			}
			log.Info("subscribed", "topic", topic)
		},
		OnConnectError: func(err error) {
			log.Warn("connect failed", "broker", s.cfg.BrokerURL, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: s.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					s.handleMessage(ctx, pr.Packet.Topic, string(pr.Packet.Payload))
					return true, nil
				},
			},
		},
	}
	if s.cfg.Username != "" {
		clientCfg.ConnectUsername = s.cfg.Username
		clientCfg.ConnectPassword = []byte(s.cfg.Password)
	}

	cm, err := autopaho.NewConnection(ctx, clientCfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.cfg.BrokerURL, err)
	}

	<-ctx.Done()

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = cm.Disconnect(disconnectCtx)
	return nil
}

// handleMessage converts one statestream update into a reading.
// Unknown entities, untracked sensors, and non-reading fields are
// dropped silently; statestream is chatty.
func (s *Subscriber) handleMessage(ctx context.Context, topic, payload string) {
	entityID, field, ok := s.parseTopic(topic)
	if !ok {
		return
	}

	sample, ok := buildSample(entityID, field, cleanPayload(payload))
	if !ok {
		return
	}

	sensor, err := s.store.GetSensorByEntityID(ctx, entityID)
	if err != nil {
		if !errors.IsNotFound(err) {
			log.Warn("sensor lookup failed", "entity_id", entityID, "error", err)
		}
		return
	}
	if !sensor.IsTracked {
		return
	}

	sample.SensorID = sensor.ID
	if err := s.store.InsertReading(ctx, &sample); err != nil {
		log.Warn("insert failed", "entity_id", entityID, "error", err)
	}
}

// parseTopic splits "<prefix>/<domain>/<object>/<field>".
func (s *Subscriber) parseTopic(topic string) (entityID, field string, ok bool) {
	rest, found := strings.CutPrefix(topic, s.cfg.TopicPrefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return "", "", false
	}
	return parts[0] + "." + parts[1], parts[2], true
}

// cleanPayload strips the JSON string quoting statestream applies to
// text values.
func cleanPayload(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		p = p[1 : len(p)-1]
	}
	return p
}

// buildSample maps one field update to a sparse reading. The bool is
// false for fields that aren't readings (icons, friendly names, ...).
func buildSample(entityID, field, payload string) (model.Sample, bool) {
	sample := model.Sample{Timestamp: time.Now().UTC()}
	domain := ""
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		domain = entityID[:i]
	}

	switch domain {
	case model.DomainSensor:
		if field != "state" {
			return sample, false
		}
		if v, err := strconv.ParseFloat(payload, 64); err == nil {
			sample.Value = &v
			return sample, true
		}
		return sample, false

	case model.DomainBinarySensor:
		if field != "state" {
			return sample, false
		}
		v := 0.0
		if strings.EqualFold(payload, "on") {
			v = 1.0
		}
		sample.Value = &v
		return sample, true

	case model.DomainClimate:
		switch field {
		case "state":
			if payload == "" || payload == "unavailable" || payload == "unknown" {
				return sample, false
			}
			sample.HVACMode = &payload
			return sample, true
		case "hvac_action":
			if payload == "" {
				return sample, false
			}
			sample.HVACAction = &payload
			return sample, true
		case "current_temperature":
			if v, err := strconv.ParseFloat(payload, 64); err == nil {
				sample.Value = &v
				return sample, true
			}
		case "temperature":
			if v, err := strconv.ParseFloat(payload, 64); err == nil {
				sample.SetpointHeat = &v
				sample.SetpointCool = &v
				return sample, true
			}
		case "target_temp_low":
			if v, err := strconv.ParseFloat(payload, 64); err == nil {
				sample.SetpointHeat = &v
				return sample, true
			}
		case "target_temp_high":
			if v, err := strconv.ParseFloat(payload, 64); err == nil {
				sample.SetpointCool = &v
				return sample, true
			}
		}
	}
	return sample, false
}
