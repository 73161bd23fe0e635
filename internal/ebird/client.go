// Package ebird implements ObservationClient: the HTTP client to the
// eBird v2 observation service, with auth, retry, backoff, rate-limit
// handling, and client-side caps (spec §6). Grounded on the teacher's
// ai/client.go / examples/weather-tool-v2/weather_tool.go for HTTP
// construction and on resilience/{retry,circuit_breaker}.go for the
// retry/backoff and circuit-breaker policy spec §7 requires.
package ebird

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/geo"
	"github.com/aviantrail/tripplanner/internal/resilience"
)

// Client is the capability SpeciesValidator, SightingsFetcher, and
// HotspotClusterer all depend on.
type Client interface {
	FetchTaxonomy(ctx context.Context) ([]TaxonomyEntry, error)
	RecentObservationsInRegion(ctx context.Context, regionCode string, daysBack int, includeProvisional bool) ([]Observation, error)
	NearbyObservations(ctx context.Context, center geo.Coordinate, distKm float64, daysBack int, speciesCode string) ([]Observation, error)
	SpeciesObservationsInRegion(ctx context.Context, regionCode, speciesCode string, daysBack int, hotspotOnly bool) ([]Observation, error)
	NearestObservationsOfSpecies(ctx context.Context, speciesCode string, center geo.Coordinate, daysBack int, distKm float64, maxResults int) ([]Observation, error)
	RegionalHotspots(ctx context.Context, regionCode string) ([]Hotspot, error)
	NearbyHotspots(ctx context.Context, center geo.Coordinate, distKm float64) ([]Hotspot, error)
	HotspotInfo(ctx context.Context, locID string) (*Hotspot, error)
	SpeciesListInRegion(ctx context.Context, regionCode string) ([]string, error)
}

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	rateGate   *RateGate
	breaker    *resilience.CircuitBreaker
	retryCfg   *resilience.RetryConfig
	logger     core.Logger
}

// New constructs an HTTPClient. rateLimitInterval and callTimeout follow
// spec §4.2/§5's 200ms / 30s defaults when zero.
func New(baseURL, apiToken string, rateLimitInterval, callTimeout time.Duration, logger core.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.ebird.org/v2"
	}
	if rateLimitInterval <= 0 {
		rateLimitInterval = 200 * time.Millisecond
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &HTTPClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   callTimeout,
		},
		rateGate: NewRateGate(rateLimitInterval),
		breaker:  resilience.New(resilience.DefaultConfig("ebird")),
		retryCfg: resilience.DefaultRetryConfig(),
		logger:   logger,
	}
}

// doGet issues an authenticated GET, enforcing the rate gate, retry, and
// circuit breaker policy, then unmarshals the JSON body into out.
func (c *HTTPClient) doGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	op := fmt.Sprintf("ebird.GET %s", path)

	err := resilience.RetryWithCircuitBreaker(ctx, c.retryCfg, c.breaker, isRetryableHTTPError, func(ctx context.Context) error {
		c.rateGate.Wait()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return core.NewValidationError(op, err)
		}
		req.Header.Set("X-eBirdApiToken", c.apiToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return core.NewTimeoutError(op, err)
			}
			return core.NewObservationServiceError(op, "ObservationServiceError", fmt.Errorf("%w: %v", core.ErrTransient, err), 0)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return core.NewObservationServiceError(op, "ObservationServiceError", fmt.Errorf("%w: status %d", core.ErrAuth, resp.StatusCode), 0)
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			return core.NewObservationServiceError(op, "ObservationServiceError", fmt.Errorf("%w: status %d", core.ErrRateLimited, resp.StatusCode), retryAfter)
		case resp.StatusCode == http.StatusNotFound:
			return core.NewObservationServiceError(op, "ObservationServiceError", fmt.Errorf("%w: status %d", core.ErrNotFound, resp.StatusCode), 0)
		case resp.StatusCode >= 500:
			return core.NewObservationServiceError(op, "ObservationServiceError", fmt.Errorf("%w: status %d", core.ErrTransient, resp.StatusCode), 0)
		case resp.StatusCode >= 400:
			return core.NewValidationError(op, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return core.NewObservationServiceError(op, "ObservationServiceError", fmt.Errorf("decoding response: %w", err), 0)
			}
		}
		return nil
	})

	if err != nil {
		c.logger.Warn("ebird request failed", map[string]interface{}{"path": path, "error": err.Error()})
	}
	return err
}

func isRetryableHTTPError(err error) bool {
	return core.IsRetryable(err)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// FetchTaxonomy implements the "/ref/taxonomy/ebird" endpoint.
func (c *HTTPClient) FetchTaxonomy(ctx context.Context) ([]TaxonomyEntry, error) {
	q := url.Values{"fmt": {"json"}, "locale": {"en"}}
	var out []TaxonomyEntry
	if err := c.doGet(ctx, "/ref/taxonomy/ebird", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentObservationsInRegion implements "/data/obs/{region}/recent".
func (c *HTTPClient) RecentObservationsInRegion(ctx context.Context, regionCode string, daysBack int, includeProvisional bool) ([]Observation, error) {
	q := url.Values{
		"back":               {strconv.Itoa(geo.ClampDaysBack(daysBack))},
		"includeProvisional": {strconv.FormatBool(includeProvisional)},
	}
	var out []Observation
	if err := c.doGet(ctx, "/data/obs/"+regionCode+"/recent", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NearbyObservations implements "/data/obs/geo/recent[/{speciesCode}]".
func (c *HTTPClient) NearbyObservations(ctx context.Context, center geo.Coordinate, distKm float64, daysBack int, speciesCode string) ([]Observation, error) {
	q := url.Values{
		"lat":  {strconv.FormatFloat(center.Lat, 'f', -1, 64)},
		"lng":  {strconv.FormatFloat(center.Lng, 'f', -1, 64)},
		"dist": {strconv.FormatFloat(geo.ClampDistanceKm(distKm), 'f', -1, 64)},
		"back": {strconv.Itoa(geo.ClampDaysBack(daysBack))},
	}
	path := "/data/obs/geo/recent"
	if speciesCode != "" {
		path += "/" + speciesCode
	}
	var out []Observation
	if err := c.doGet(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SpeciesObservationsInRegion implements "/data/obs/{region}/recent/{speciesCode}".
func (c *HTTPClient) SpeciesObservationsInRegion(ctx context.Context, regionCode, speciesCode string, daysBack int, hotspotOnly bool) ([]Observation, error) {
	q := url.Values{
		"back":    {strconv.Itoa(geo.ClampDaysBack(daysBack))},
		"hotspot": {strconv.FormatBool(hotspotOnly)},
	}
	var out []Observation
	if err := c.doGet(ctx, "/data/obs/"+regionCode+"/recent/"+speciesCode, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NearestObservationsOfSpecies implements "/data/nearest/geo/recent/{speciesCode}".
func (c *HTTPClient) NearestObservationsOfSpecies(ctx context.Context, speciesCode string, center geo.Coordinate, daysBack int, distKm float64, maxResults int) ([]Observation, error) {
	q := url.Values{
		"lat":        {strconv.FormatFloat(center.Lat, 'f', -1, 64)},
		"lng":        {strconv.FormatFloat(center.Lng, 'f', -1, 64)},
		"back":       {strconv.Itoa(geo.ClampDaysBack(daysBack))},
		"dist":       {strconv.FormatFloat(geo.ClampDistanceKm(distKm), 'f', -1, 64)},
		"maxResults": {strconv.Itoa(geo.ClampMaxResults(maxResults))},
	}
	var out []Observation
	if err := c.doGet(ctx, "/data/nearest/geo/recent/"+speciesCode, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegionalHotspots implements "/ref/hotspot/{region}".
func (c *HTTPClient) RegionalHotspots(ctx context.Context, regionCode string) ([]Hotspot, error) {
	q := url.Values{"fmt": {"json"}}
	var out []Hotspot
	if err := c.doGet(ctx, "/ref/hotspot/"+regionCode, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NearbyHotspots implements "/ref/hotspot/geo".
func (c *HTTPClient) NearbyHotspots(ctx context.Context, center geo.Coordinate, distKm float64) ([]Hotspot, error) {
	q := url.Values{
		"lat":  {strconv.FormatFloat(center.Lat, 'f', -1, 64)},
		"lng":  {strconv.FormatFloat(center.Lng, 'f', -1, 64)},
		"dist": {strconv.FormatFloat(geo.ClampDistanceKm(distKm), 'f', -1, 64)},
	}
	var out []Hotspot
	if err := c.doGet(ctx, "/ref/hotspot/geo", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HotspotInfo implements "/ref/hotspot/info/{locId}".
func (c *HTTPClient) HotspotInfo(ctx context.Context, locID string) (*Hotspot, error) {
	var out Hotspot
	if err := c.doGet(ctx, "/ref/hotspot/info/"+locID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpeciesListInRegion implements "/product/spplist/{region}".
func (c *HTTPClient) SpeciesListInRegion(ctx context.Context, regionCode string) ([]string, error) {
	var out []string
	if err := c.doGet(ctx, "/product/spplist/"+regionCode, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
