// Package snmpprobe polls SNMP agents on HVAC equipment for numeric
// gauges. Some air handlers, condensate pumps, and managed PDUs expose
// temperatures or runtime counters over SNMP; each configured probe
// becomes a synthetic sensor ("probe.<name>") whose readings feed the
// same analytics as Home Assistant entities.
package snmpprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/model"
	"github.com/gosnmp/gosnmp"
)

var log = logging.Component("snmpprobe")

// Store is the slice of the database the probe needs.
type Store interface {
	UpsertDiscoveredSensor(ctx context.Context, sensor *model.Sensor) (bool, error)
	InsertReading(ctx context.Context, r *model.Sample) error
}

// Config holds one probe's SNMP settings.
type Config struct {
	Name      string
	Host      string
	Port      uint16
	Community string
	OID       string

	// Scale divides the raw integer (agents often report tenths).
	Scale float64

	Interval  time.Duration
	TimeoutMs int
	Retries   int
}

// Probe polls one OID on one agent.
type Probe struct {
	store Store
	cfg   Config

	// sensorID is resolved on first poll and cached.
	sensorID int64
}

// New creates a probe source from its configuration.
func New(store Store, cfg Config) *Probe {
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Community == "" {
		cfg.Community = "public"
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 5000
	}
	if cfg.Retries < 0 {
		cfg.Retries = 2
	}
	return &Probe{store: store, cfg: cfg}
}

func (p *Probe) Name() string            { return "snmp-" + p.cfg.Name }
func (p *Probe) Interval() time.Duration { return p.cfg.Interval }

// EntityID returns the probe's synthetic entity ID.
func (p *Probe) EntityID() string {
	return "probe." + p.cfg.Name
}

// Poll GETs the configured OID and stores the scaled value as a
// reading.
func (p *Probe) Poll(ctx context.Context) (int, error) {
	if err := p.ensureSensor(ctx); err != nil {
		return 0, err
	}

	value, err := p.get(ctx)
	if err != nil {
		return 0, err
	}

	reading := model.Sample{
		SensorID:  p.sensorID,
		Timestamp: time.Now().UTC(),
		Value:     &value,
	}
	if err := p.store.InsertReading(ctx, &reading); err != nil {
		return 0, err
	}

	log.Debug("probe reading", "probe", p.cfg.Name, "value", value)
	return 1, nil
}

// ensureSensor registers the synthetic sensor on first poll.
func (p *Probe) ensureSensor(ctx context.Context) error {
	if p.sensorID != 0 {
		return nil
	}

	sensor := model.Sensor{
		EntityID:     p.EntityID(),
		FriendlyName: p.cfg.Name,
		Domain:       model.DomainSensor,
		IsTracked:    true,
	}
	created, err := p.store.UpsertDiscoveredSensor(ctx, &sensor)
	if err != nil {
		return fmt.Errorf("register probe sensor: %w", err)
	}
	if created {
		log.Info("registered probe sensor", "entity_id", sensor.EntityID)
	}
	p.sensorID = sensor.ID
	return nil
}

// get performs the SNMP GET and converts the result to a scaled gauge.
func (p *Probe) get(ctx context.Context) (float64, error) {
	snmp := &gosnmp.GoSNMP{
		Target:    p.cfg.Host,
		Port:      p.cfg.Port,
		Version:   gosnmp.Version2c,
		Community: p.cfg.Community,
		Timeout:   time.Duration(p.cfg.TimeoutMs) * time.Millisecond,
		Retries:   p.cfg.Retries,
		Context:   ctx,
	}

	if err := snmp.Connect(); err != nil {
		return 0, fmt.Errorf("connect %s: %w", p.cfg.Host, err)
	}
	defer snmp.Conn.Close()

	pdu, err := snmp.Get([]string{p.cfg.OID})
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", p.cfg.OID, err)
	}
	if len(pdu.Variables) == 0 {
		return 0, fmt.Errorf("get %s: no variables returned", p.cfg.OID)
	}

	variable := pdu.Variables[0]
	var raw float64
	switch variable.Type {
	case gosnmp.Integer:
		raw = float64(variable.Value.(int))
	case gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32, gosnmp.Uinteger32:
		raw = float64(gosnmp.ToBigInt(variable.Value).Uint64())
	case gosnmp.TimeTicks:
		raw = float64(variable.Value.(uint32))
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
		return 0, fmt.Errorf("OID %s not found", p.cfg.OID)
	default:
		return 0, fmt.Errorf("unsupported type %v for OID %s", variable.Type, p.cfg.OID)
	}

	return raw / p.cfg.Scale, nil
}
