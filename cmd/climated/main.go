// climated is the HVAC analytics daemon: it collects thermostat and
// sensor readings from Home Assistant (REST and optionally MQTT),
// outdoor observations from the National Weather Service, and optional
// SNMP equipment probes, stores everything in DuckDB, and serves the
// analytics API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/77degrees/climate-analyzer/internal/archive"
	"github.com/77degrees/climate-analyzer/internal/cache"
	"github.com/77degrees/climate-analyzer/internal/collector"
	"github.com/77degrees/climate-analyzer/internal/engine"
	"github.com/77degrees/climate-analyzer/internal/loader"
	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/server"
	"github.com/77degrees/climate-analyzer/internal/source/homeassistant"
	"github.com/77degrees/climate-analyzer/internal/source/mqttstream"
	"github.com/77degrees/climate-analyzer/internal/source/nws"
	"github.com/77degrees/climate-analyzer/internal/source/snmpprobe"
	"github.com/77degrees/climate-analyzer/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "database path (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "emit JSON logs")
	flag.Parse()

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = loader.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}

	if err := loader.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(parseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	log := logging.Component("main")
	log.Info("climated starting", "version", Version, "config", *cfgPath)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *loader.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Store (DuckDB)
	// =========================================================================

	st, err := store.New(loader.ToStoreConfig(&cfg.Database))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", "path", cfg.Database.Path)

	seedSettings(ctx, st, cfg)

	// =========================================================================
	// Engine
	// =========================================================================

	eng := engine.New(st, st, engine.Params{
		SamplesPerHour:    float64(cfg.Engine.SamplesPerHour),
		RecoveryTimeout:   time.Duration(cfg.Engine.RecoveryTimeoutMin) * time.Minute,
		StruggleThreshold: cfg.Engine.StruggleThreshold,
		HeatmapUTCOffset:  cfg.Engine.HeatmapUTCOffset.Duration(),
		TempBinSize:       cfg.Engine.TempBinSize,
	})

	// =========================================================================
	// Collector and Sources
	// =========================================================================

	coll := collector.New(&collector.Config{
		Workers:      cfg.Collector.Workers,
		QueueSize:    64,
		TickInterval: cfg.Collector.TickInterval.Duration(),
		DrainTimeout: time.Duration(cfg.Server.DrainTimeoutSec) * time.Second,
	})

	coll.Register(homeassistant.NewReadingsSource(st,
		cfg.HomeAssistant.PollInterval.Duration(),
		cfg.HomeAssistant.Timeout.Duration()))
	coll.Register(homeassistant.NewDiscoverySource(st,
		cfg.HomeAssistant.DiscoveryInterval.Duration(),
		cfg.HomeAssistant.Timeout.Duration()))

	if cfg.WeatherEnabled() {
		client := nws.NewClient("", cfg.Weather.Timeout.Duration())
		coll.Register(nws.NewWeatherSource(st, client,
			cfg.Weather.PollInterval.Duration(),
			cfg.Weather.Latitude, cfg.Weather.Longitude))
	}

	for _, pc := range cfg.Probes {
		coll.Register(snmpprobe.New(st, snmpprobe.Config{
			Name:      pc.Name,
			Host:      pc.Host,
			Port:      pc.Port,
			Community: pc.Community,
			OID:       pc.OID,
			Scale:     pc.Scale,
			Interval:  pc.Interval.Duration(),
			TimeoutMs: pc.TimeoutMs,
			Retries:   pc.Retries,
		}))
	}

	if cfg.Database.RetentionDays > 0 {
		var archiver *archive.Archiver
		if cfg.Archive.Enabled {
			archiver = archive.NewArchiver(st, cfg.Archive.Dir, archive.Options{
				Compression: archive.ParseCompressionType(cfg.Archive.Compression),
			})
			log.Info("archiving enabled", "dir", cfg.Archive.Dir)
		}
		coll.Register(archive.NewRetentionSource(st, archiver, cfg.Database.RetentionDays))
	}

	coll.Start()
	defer coll.Stop()

	// =========================================================================
	// Cache, Server, optional MQTT
	// =========================================================================

	metricCache := cache.New(cache.Config{
		Enabled:  cfg.Cache.Enabled,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.MetricsTTL.Duration(),
	})
	defer metricCache.Close()

	srv := server.New(server.Config{
		Listen:       cfg.Server.Listen,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		DrainTimeout: time.Duration(cfg.Server.DrainTimeoutSec) * time.Second,
		CORSOrigins:  cfg.Server.CORSOrigins,
		HATimeout:    cfg.HomeAssistant.Timeout.Duration(),
		NWSTimeout:   cfg.Weather.Timeout.Duration(),
	}, st, eng, metricCache, coll)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.MQTT.Enabled {
		sub := mqttstream.New(st, mqttstream.Config{
			BrokerURL:   cfg.MQTT.BrokerURL,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			KeepAlive:   cfg.MQTT.KeepAlive,
		})
		g.Go(func() error {
			return sub.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("climated stopped")
	return err
}

// seedSettings copies file-config provider settings into the database
// on first run. Stored settings win afterwards so changes made through
// the API survive restarts.
func seedSettings(ctx context.Context, st *store.Store, cfg *loader.Config) {
	seed := func(key, value string) {
		if value == "" {
			return
		}
		if _, err := st.GetSetting(ctx, key); err == nil {
			return
		}
		_ = st.SetSetting(ctx, key, value)
	}

	seed(store.SettingHAURL, cfg.HomeAssistant.URL)
	seed(store.SettingHAToken, cfg.HomeAssistant.Token)
	seed(store.SettingNWSLat, strconv.FormatFloat(cfg.Weather.Latitude, 'f', -1, 64))
	seed(store.SettingNWSLon, strconv.FormatFloat(cfg.Weather.Longitude, 'f', -1, 64))
	seed(store.SettingNWSStationID, cfg.Weather.StationID)
}

// parseLevel maps a config level string to slog.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
