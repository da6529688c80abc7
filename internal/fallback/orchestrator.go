// Package fallback tries configured weather providers in order and returns the
// first successful report.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"nimbus/api"
	"nimbus/internal/errorutil"
	"nimbus/internal/logger"
	"nimbus/internal/resolver"
	"nimbus/weather"
)

const (
	breakerFailures = 5
	breakerCooldown = 2 * time.Minute
)

// Request describes one fallback run
type Request struct {
	Location  weather.Location
	Providers []weather.ProviderID
	Units     weather.Units
	Keys      map[weather.ProviderID]string
	Timeout   time.Duration
	Verbosity int
	UseCache  bool
	NoCache   bool
	Language  string
}

func (r Request) cacheEnabled() bool {
	return r.UseCache && !r.NoCache
}

// UVSource supplies a UV index for coordinates
type UVSource interface {
	UVIndex(ctx context.Context, coords weather.Coordinates, apiKey string, timeout time.Duration) (float64, error)
}

// ProviderFactory builds a provider by id
type ProviderFactory func(id weather.ProviderID) (api.Provider, error)

// GeocoderFactory builds the geocoder used to resolve cities for a provider
type GeocoderFactory func(id weather.ProviderID, apiKey string, timeout time.Duration, language string) resolver.Geocoder

// Orchestrator runs providers in order until one succeeds. It is safe for
// sequential reuse across live-mode ticks; breaker state carries over.
type Orchestrator struct {
	cache     resolver.Cache
	providers ProviderFactory
	geocoders GeocoderFactory
	uv        UVSource

	mu       sync.Mutex
	breakers map[weather.ProviderID]*gobreaker.CircuitBreaker
	cooldown time.Duration
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithProviderFactory replaces the provider constructor
func WithProviderFactory(f ProviderFactory) Option {
	return func(o *Orchestrator) { o.providers = f }
}

// WithGeocoderFactory replaces the geocoder constructor
func WithGeocoderFactory(f GeocoderFactory) Option {
	return func(o *Orchestrator) { o.geocoders = f }
}

// WithUVSource replaces the UV enrichment source
func WithUVSource(uv UVSource) Option {
	return func(o *Orchestrator) { o.uv = uv }
}

// WithBreakerCooldown sets how long an open breaker rejects calls
func WithBreakerCooldown(d time.Duration) Option {
	return func(o *Orchestrator) { o.cooldown = d }
}

// New creates an orchestrator sharing one HTTP client across providers.
// cache may be nil when no geocoding cache is available.
func New(client *resty.Client, cache resolver.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache: cache,
		providers: func(id weather.ProviderID) (api.Provider, error) {
			return api.New(id, client)
		},
		geocoders: func(id weather.ProviderID, apiKey string, timeout time.Duration, language string) resolver.Geocoder {
			return api.GeocoderFor(id, client, apiKey, timeout, language)
		},
		uv:       api.NewOpenUV(client),
		breakers: make(map[weather.ProviderID]*gobreaker.CircuitBreaker),
		cooldown: breakerCooldown,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fetch returns the first successful report. When every provider fails the
// error is a *weather.AggregateFetchError listing each failure in order.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	if len(req.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if req.Location.IsZero() {
		return nil, fmt.Errorf("no location given")
	}
	for _, id := range req.Providers {
		if !id.Valid() || id.Info().Auxiliary {
			return nil, fmt.Errorf("%q is not a weather provider", id)
		}
	}
	if req.Units == "" {
		req.Units = weather.Metric
	}

	var cache resolver.Cache
	if req.cacheEnabled() {
		cache = o.cache
	}
	run := &attempt{
		req:      req,
		resolver: resolver.New(cache),
	}

	failures := make([]*weather.ProviderError, 0, len(req.Providers))
	for _, id := range req.Providers {
		report, err := o.try(ctx, run, id)
		if err == nil {
			o.finish(ctx, run, report)
			logger.Info("Weather from %s for %s", id, report.LocationName)
			return report, nil
		}

		perr := asProviderError(id, err)
		failures = append(failures, perr)
		o.logFailure(req, perr)
	}

	return nil, &weather.AggregateFetchError{Failures: failures}
}

// attempt carries state shared by the providers of one Fetch
type attempt struct {
	req      Request
	resolver *resolver.Resolver
	place    *weather.Place
}

func (o *Orchestrator) try(ctx context.Context, run *attempt, id weather.ProviderID) (*weather.Report, error) {
	provider, err := o.providers(id)
	if err != nil {
		return nil, weather.NewProviderError(id, weather.KindMalformed, "provider unavailable", err)
	}

	key := run.req.Keys[id]
	if provider.RequiresAPIKey() {
		if err := api.RequireKey(id, key); err != nil {
			return nil, err
		}
	}
	loc := run.req.Location

	if !provider.SupportsCityInput() && !loc.IsResolved() {
		if run.place == nil {
			geocoder := o.geocoders(id, key, run.req.Timeout, run.req.Language)
			place, err := run.resolver.Resolve(ctx, loc, geocoder)
			if err != nil {
				return nil, resolutionFailure(id, err)
			}
			run.place = &place
		}
		loc = weather.AtCoordinates(run.place.Lat, run.place.Lon)
	}

	apiReq := api.Request{
		Location: loc,
		Units:    run.req.Units,
		APIKey:   key,
		Timeout:  run.req.Timeout,
		Language: run.req.Language,
	}

	result, err := o.breaker(id).Execute(func() (interface{}, error) {
		return provider.Fetch(ctx, apiReq)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, weather.NewProviderError(id, weather.KindNetwork, "temporarily skipped after repeated failures", err)
	}
	if err != nil {
		return nil, err
	}

	report, ok := result.(*weather.Report)
	if !ok || report == nil {
		return nil, weather.NewProviderError(id, weather.KindMalformed, "provider returned no report", nil)
	}
	return report, nil
}

// finish applies enrichment shared by every provider
func (o *Orchestrator) finish(ctx context.Context, run *attempt, report *weather.Report) {
	report.Enrich()

	if run.place != nil {
		if run.place.Name != "" {
			report.LocationName = run.place.Name
		}
		if report.Coordinates == nil {
			coords := run.place.Coordinates
			report.Coordinates = &coords
		}
	}
	if report.Coordinates == nil {
		if coords, ok := run.req.Location.Coordinates(); ok {
			report.Coordinates = &coords
		}
	}
	if report.LocationName == "" {
		report.LocationName = run.req.Location.String()
	}

	o.enrichUV(ctx, run.req, report)
}

// enrichUV fills a missing UV index from OpenUV. Any failure leaves the report unchanged.
func (o *Orchestrator) enrichUV(ctx context.Context, req Request, report *weather.Report) {
	key := req.Keys[weather.OpenUV]
	if o.uv == nil || key == "" || report.UVIndex != nil || report.Coordinates == nil {
		return
	}

	uv, err := o.uv.UVIndex(ctx, *report.Coordinates, key, req.Timeout)
	if err != nil {
		logger.Debug("UV enrichment skipped: %v", err)
		return
	}
	report.UVIndex = &uv
}

func (o *Orchestrator) breaker(id weather.ProviderID) *gobreaker.CircuitBreaker {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cb, ok := o.breakers[id]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(id),
		MaxRequests: 1,
		Timeout:     o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Provider %s circuit %s -> %s", name, from, to)
		},
	})
	o.breakers[id] = cb
	return cb
}

// breakerSuccess counts only network and rate-limit failures against a
// provider. A bad key or unknown location keeps its own failure kind.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var perr *weather.ProviderError
	if errors.As(err, &perr) {
		return perr.Kind != weather.KindNetwork && perr.Kind != weather.KindRateLimited
	}
	return false
}

func (o *Orchestrator) logFailure(req Request, perr *weather.ProviderError) {
	level := logger.DebugLevel
	if req.Verbosity >= 1 {
		level = logger.WarnLevel
	}
	logger.LogWithFields(level, "Provider failed", map[string]any{
		"provider": string(perr.Provider),
		"kind":     perr.Kind.String(),
		"detail":   perr.Detail,
		"location": req.Location.String(),
	})

	var netErr *errorutil.NetworkError
	if req.Verbosity >= 3 && errors.As(perr, &netErr) {
		errorutil.LogNetworkError(logger.Get().Logger, netErr)
	}
}

// resolutionFailure turns a failed city lookup into the provider's failure
func resolutionFailure(id weather.ProviderID, err error) *weather.ProviderError {
	var rerr *weather.ResolutionError
	if errors.As(err, &rerr) && rerr.Kind == weather.CityNotFound {
		return weather.NewProviderError(id, weather.KindUnsupportedLocation, fmt.Sprintf("city %q not found", rerr.City), err)
	}
	return weather.NewProviderError(id, weather.KindNetwork, "geocoding failed", err)
}

func asProviderError(id weather.ProviderID, err error) *weather.ProviderError {
	var perr *weather.ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return weather.NewProviderError(id, weather.KindNetwork, "", err)
}
