// Package resolver turns user supplied locations into coordinates, consulting
// the on-disk geocoding cache before any network lookup.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"nimbus/internal/errorutil"
	"nimbus/internal/logger"
	"nimbus/weather"
)

// Geocoder looks up a city name
type Geocoder interface {
	Geocode(ctx context.Context, city string) (weather.Place, error)
}

// Cache is the subset of the geocoding cache the resolver needs
type Cache interface {
	Get(city string) (weather.Place, bool)
	Put(city string, place weather.Place) error
}

// Resolver resolves locations, optionally through a cache
type Resolver struct {
	cache Cache
}

// New creates a resolver. A nil cache disables caching entirely.
func New(cache Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve returns coordinates for loc. Coordinates pass through untouched;
// a city is looked up in the cache first and geocoded only on a miss.
// Cache failures are logged and never fail the resolution.
func (r *Resolver) Resolve(ctx context.Context, loc weather.Location, geocoder Geocoder) (weather.Place, error) {
	if loc.IsZero() {
		return weather.Place{}, fmt.Errorf("no location given")
	}

	if coords, ok := loc.Coordinates(); ok {
		if !coords.Valid() {
			return weather.Place{}, fmt.Errorf("coordinates %s out of range", coords)
		}
		return weather.Place{Coordinates: coords}, nil
	}

	city := loc.City()
	if r.cache != nil {
		if place, ok := r.cache.Get(city); ok {
			return place, nil
		}
	}

	if geocoder == nil {
		return weather.Place{}, &weather.ResolutionError{City: city, Kind: weather.GeocodingFailed, Err: fmt.Errorf("no geocoder available")}
	}

	complete := logger.LogOperationStart("resolve_city", map[string]any{"city": city})
	place, err := geocoder.Geocode(ctx, city)
	if err != nil {
		complete(err)
		if errors.Is(err, weather.ErrCityNotFound) {
			return weather.Place{}, &weather.ResolutionError{City: city, Kind: weather.CityNotFound, Err: err}
		}
		return weather.Place{}, &weather.ResolutionError{City: city, Kind: weather.GeocodingFailed, Err: err}
	}
	if !place.Coordinates.Valid() {
		err := fmt.Errorf("geocoder returned coordinates %s out of range", place.Coordinates)
		complete(err)
		return weather.Place{}, &weather.ResolutionError{City: city, Kind: weather.GeocodingFailed, Err: err}
	}
	complete(nil)

	if place.Name == "" {
		place.Name = city
	}
	if r.cache != nil {
		if err := r.cache.Put(city, place); err != nil {
			errorutil.LogWarning(logger.Get().Logger, "geocoding cache write", err,
				errorutil.LocationContext(city, "", "")...)
		}
	}

	logger.Info("Resolved %q to %s (%s)", city, place.Coordinates, place.Name)
	return place, nil
}
