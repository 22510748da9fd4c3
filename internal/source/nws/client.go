// Package nws polls the National Weather Service API for outdoor
// observations. Observations are matched to indoor readings later by
// the analytics engine's nearest-prior join.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// DefaultBaseURL is the public NWS API endpoint.
const DefaultBaseURL = "https://api.weather.gov"

// userAgent identifies this application per NWS API policy.
const userAgent = "(climate-analyzer, github.com/77degrees/climate-analyzer)"

// =============================================================================
// Unit Conversions
// =============================================================================
// NWS reports SI units; readings are stored in the units the thermostat
// reports (°F, mph, inHg).

// CToF converts Celsius to Fahrenheit, rounded to one decimal.
func CToF(c *float64) *float64 {
	if c == nil {
		return nil
	}
	f := math.Round((*c*9/5+32)*10) / 10
	return &f
}

// KphToMph converts km/h to mph, rounded to one decimal.
func KphToMph(kph *float64) *float64 {
	if kph == nil {
		return nil
	}
	mph := math.Round(*kph*0.621371*10) / 10
	return &mph
}

// PaToInHg converts Pascals to inches of mercury, rounded to two
// decimals.
func PaToInHg(pa *float64) *float64 {
	if pa == nil {
		return nil
	}
	inhg := math.Round(*pa*0.00029530*100) / 100
	return &inhg
}

// =============================================================================
// Client
// =============================================================================

// Client is a National Weather Service API client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client. An empty baseURL uses the public API.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, url string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %v: %w", url, err, errors.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("%s: status %d: %w", url, resp.StatusCode, errors.ErrProviderUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s: decode: %w", url, err)
	}
	return resp.StatusCode, nil
}

// ResolveStation resolves coordinates to the nearest observation
// station ID.
func (c *Client) ResolveStation(ctx context.Context, lat, lon float64) (string, error) {
	var point struct {
		Properties struct {
			ObservationStations string `json:"observationStations"`
		} `json:"properties"`
	}
	url := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if _, err := c.get(ctx, url, &point); err != nil {
		return "", err
	}
	if point.Properties.ObservationStations == "" {
		return "", fmt.Errorf("point %.4f,%.4f: %w", lat, lon, errors.ErrStationUnresolved)
	}

	var stations struct {
		Features []struct {
			Properties struct {
				StationIdentifier string `json:"stationIdentifier"`
			} `json:"properties"`
		} `json:"features"`
	}
	if _, err := c.get(ctx, point.Properties.ObservationStations, &stations); err != nil {
		return "", err
	}
	if len(stations.Features) == 0 {
		return "", fmt.Errorf("no stations near %.4f,%.4f: %w", lat, lon, errors.ErrStationUnresolved)
	}

	return stations.Features[0].Properties.StationIdentifier, nil
}

// quantity is the NWS unit-tagged value wrapper.
type quantity struct {
	Value *float64 `json:"value"`
}

// LatestObservation returns the station's latest observation converted
// to storage units, or nil when the station has none.
func (c *Client) LatestObservation(ctx context.Context, stationID string) (*model.WeatherObservation, error) {
	var obs struct {
		Properties struct {
			Timestamp          string   `json:"timestamp"`
			Temperature        quantity `json:"temperature"`
			RelativeHumidity   quantity `json:"relativeHumidity"`
			WindSpeed          quantity `json:"windSpeed"`
			TextDescription    string   `json:"textDescription"`
			BarometricPressure quantity `json:"barometricPressure"`
			Dewpoint           quantity `json:"dewpoint"`
			HeatIndex          quantity `json:"heatIndex"`
		} `json:"properties"`
	}

	url := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, stationID)
	status, err := c.get(ctx, url, &obs)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	ts := time.Now().UTC()
	if obs.Properties.Timestamp != "" {
		if parsed, perr := time.Parse(time.RFC3339, obs.Properties.Timestamp); perr == nil {
			ts = parsed.UTC()
		}
	}

	var condition *string
	if obs.Properties.TextDescription != "" {
		condition = &obs.Properties.TextDescription
	}

	return &model.WeatherObservation{
		Timestamp:   ts,
		Source:      "nws",
		Temperature: CToF(obs.Properties.Temperature.Value),
		Humidity:    obs.Properties.RelativeHumidity.Value,
		WindSpeed:   KphToMph(obs.Properties.WindSpeed.Value),
		Condition:   condition,
		Pressure:    PaToInHg(obs.Properties.BarometricPressure.Value),
		Dewpoint:    CToF(obs.Properties.Dewpoint.Value),
		HeatIndex:   CToF(obs.Properties.HeatIndex.Value),
	}, nil
}
