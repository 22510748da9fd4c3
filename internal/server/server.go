// Package server exposes the HTTP API: analytics endpoints backed by
// the engine, resource CRUD for sensors/zones/settings, raw series
// access, and operational surfaces (health, stats, prometheus).
//
// Handlers translate store and provider errors through
// errors.HTTPStatus; an empty analytics window is a 200 with an empty
// list, not an error.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/77degrees/climate-analyzer/config"
	"github.com/77degrees/climate-analyzer/internal/cache"
	"github.com/77degrees/climate-analyzer/internal/collector"
	"github.com/77degrees/climate-analyzer/internal/engine"
	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/store"
	"github.com/77degrees/climate-analyzer/internal/telemetry"
)

var log = logging.Component("server")

// =============================================================================
// Server Configuration
// =============================================================================

// StatsSource reports collection health for /api/stats. Nil is allowed
// when no collector is running.
type StatsSource interface {
	Stats() []collector.SourceStats
	Backpressure() int64
}

// Config holds server configuration.
type Config struct {
	// Listen is the address to listen on (e.g., "0.0.0.0:8400").
	Listen string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DrainTimeout bounds graceful shutdown.
	DrainTimeout time.Duration

	// CORSOrigins lists allowed origins; empty disables CORS headers.
	CORSOrigins []string

	// Provider timeouts for the settings connection tests.
	HATimeout  time.Duration
	NWSTimeout time.Duration
}

// =============================================================================
// Server
// =============================================================================

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	store  *store.Store
	engine *engine.Engine
	cache  *cache.Cache
	stats  StatsSource

	httpSrv *http.Server

	mu      sync.Mutex
	started time.Time
}

// New creates a server. cache and stats may be nil.
func New(cfg Config, st *store.Store, eng *engine.Engine, c *cache.Cache, stats StatsSource) *Server {
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = config.DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = config.DefaultWriteTimeout
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = config.DefaultDrainTimeoutSec * time.Second
	}
	if cfg.HATimeout == 0 {
		cfg.HATimeout = 10 * time.Second
	}
	if cfg.NWSTimeout == 0 {
		cfg.NWSTimeout = 15 * time.Second
	}

	return &Server{
		cfg:    cfg,
		store:  st,
		engine: eng,
		cache:  c,
		stats:  stats,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	api := r.PathPrefix("/api").Subrouter()

	// Analytics. Every endpoint takes days (1-365, default 7) and an
	// optional sensor_id falling back to the first tracked thermostat.
	metrics := api.PathPrefix("/metrics").Subrouter()
	metrics.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	metrics.HandleFunc("/recovery", s.handleRecovery).Methods(http.MethodGet)
	metrics.HandleFunc("/duty-cycle", s.handleDutyCycle).Methods(http.MethodGet)
	metrics.HandleFunc("/hold-efficiency", s.handleHoldEfficiency).Methods(http.MethodGet)
	metrics.HandleFunc("/energy-profile", s.handleEnergyProfile).Methods(http.MethodGet)
	metrics.HandleFunc("/monthly-trends", s.handleMonthlyTrends).Methods(http.MethodGet)
	metrics.HandleFunc("/temp-bins", s.handleTempBins).Methods(http.MethodGet)
	metrics.HandleFunc("/heatmap", s.handleHeatmap).Methods(http.MethodGet)
	metrics.HandleFunc("/setpoint-history", s.handleSetpointHistory).Methods(http.MethodGet)
	metrics.HandleFunc("/ac-struggle", s.handleACStruggle).Methods(http.MethodGet)

	// Raw series.
	api.HandleFunc("/readings", s.handleReadings).Methods(http.MethodGet)
	api.HandleFunc("/readings/latest", s.handleLatestReadings).Methods(http.MethodGet)
	api.HandleFunc("/weather/current", s.handleCurrentWeather).Methods(http.MethodGet)
	api.HandleFunc("/weather/history", s.handleWeatherHistory).Methods(http.MethodGet)

	// Resources.
	api.HandleFunc("/sensors", s.handleListSensors).Methods(http.MethodGet)
	api.HandleFunc("/sensors/discover", s.handleDiscoverSensors).Methods(http.MethodPost)
	api.HandleFunc("/sensors/{id:[0-9]+}", s.handleGetSensor).Methods(http.MethodGet)
	api.HandleFunc("/sensors/{id:[0-9]+}", s.handlePatchSensor).Methods(http.MethodPatch)
	api.HandleFunc("/zones", s.handleListZones).Methods(http.MethodGet)
	api.HandleFunc("/zones", s.handleCreateZone).Methods(http.MethodPost)
	api.HandleFunc("/zones/{id:[0-9]+}", s.handlePatchZone).Methods(http.MethodPatch)
	api.HandleFunc("/zones/{id:[0-9]+}", s.handleDeleteZone).Methods(http.MethodDelete)
	api.HandleFunc("/zones/{id:[0-9]+}/current", s.handleZoneCurrent).Methods(http.MethodGet)

	// Settings and operations.
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings/test-ha", s.handleTestHA).Methods(http.MethodPost)
	api.HandleFunc("/settings/test-nws", s.handleTestNWS).Methods(http.MethodPost)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)

	return r
}

// Run starts the listener and blocks until the context is cancelled,
// then drains in-flight requests within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	var handler http.Handler = s.Router()
	if len(s.cfg.CORSOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(handler)
	}

	s.mu.Lock()
	s.started = time.Now()
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "address", s.cfg.Listen)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("draining", "timeout", s.cfg.DrainTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(drainCtx)
}

// uptime returns the time since Run started, zero before that.
func (s *Server) uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}
