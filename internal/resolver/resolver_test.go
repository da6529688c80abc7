package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimbus/internal/geocache"
	"nimbus/weather"
)

type countingGeocoder struct {
	calls int
	place weather.Place
	err   error
}

func (g *countingGeocoder) Geocode(ctx context.Context, city string) (weather.Place, error) {
	g.calls++
	return g.place, g.err
}

type failingCache struct {
	puts int
}

func (c *failingCache) Get(string) (weather.Place, bool) { return weather.Place{}, false }
func (c *failingCache) Put(string, weather.Place) error {
	c.puts++
	return errors.New("disk full")
}

var paris = weather.Place{Name: "Paris, France", Coordinates: weather.Coordinates{Lat: 48.8566, Lon: 2.3522}}

func newCache(t *testing.T) *geocache.Cache {
	t.Helper()
	return geocache.New(filepath.Join(t.TempDir(), "geocoding.toml"))
}

func TestResolve_CoordinatesPassThrough(t *testing.T) {
	g := &countingGeocoder{place: paris}
	r := New(newCache(t))

	place, err := r.Resolve(context.Background(), weather.AtCoordinates(41.7, 44.8), g)
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 41.7, Lon: 44.8}, place.Coordinates)
	assert.Equal(t, 0, g.calls)
}

func TestResolve_InvalidInput(t *testing.T) {
	r := New(nil)
	g := &countingGeocoder{place: paris}

	_, err := r.Resolve(context.Background(), weather.Location{}, g)
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), weather.AtCoordinates(91, 0), g)
	assert.Error(t, err)
	assert.Equal(t, 0, g.calls)
}

func TestResolve_CacheMissThenHit(t *testing.T) {
	cache := newCache(t)
	g := &countingGeocoder{place: paris}
	r := New(cache)

	place, err := r.Resolve(context.Background(), weather.InCity("Paris"), g)
	require.NoError(t, err)
	assert.Equal(t, paris, place)
	assert.Equal(t, 1, g.calls)

	// Differently written name hits the entry stored by the first lookup
	place, err = r.Resolve(context.Background(), weather.InCity("  PARIS "), g)
	require.NoError(t, err)
	assert.Equal(t, paris, place)
	assert.Equal(t, 1, g.calls, "cache hit must not call the geocoder")

	// A second resolver on the same file also hits
	other := New(geocache.New(cache.Path()))
	_, err = other.Resolve(context.Background(), weather.InCity("paris"), g)
	require.NoError(t, err)
	assert.Equal(t, 1, g.calls)
}

func TestResolve_WithoutCacheAlwaysGeocodes(t *testing.T) {
	g := &countingGeocoder{place: paris}
	r := New(nil)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), weather.InCity("Paris"), g)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, g.calls)
}

func TestResolve_CityNotFound(t *testing.T) {
	cache := newCache(t)
	g := &countingGeocoder{err: weather.ErrCityNotFound}
	r := New(cache)

	_, err := r.Resolve(context.Background(), weather.InCity("Atlantis"), g)

	var rerr *weather.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, weather.CityNotFound, rerr.Kind)
	assert.Equal(t, "Atlantis", rerr.City)
	assert.Equal(t, 0, cache.Len(), "failed lookups are not cached")
}

func TestResolve_GeocodingFailed(t *testing.T) {
	g := &countingGeocoder{err: weather.NewProviderError(weather.OpenMeteo, weather.KindNetwork, "timed out", nil)}
	r := New(nil)

	_, err := r.Resolve(context.Background(), weather.InCity("Paris"), g)

	var rerr *weather.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, weather.GeocodingFailed, rerr.Kind)

	var perr *weather.ProviderError
	assert.True(t, errors.As(err, &perr), "underlying provider error stays reachable")

	_, err = r.Resolve(context.Background(), weather.InCity("Paris"), nil)
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, weather.GeocodingFailed, rerr.Kind)
}

func TestResolve_RejectsInvalidGeocoderResult(t *testing.T) {
	g := &countingGeocoder{place: weather.Place{Name: "Bogus", Coordinates: weather.Coordinates{Lat: 200}}}
	_, err := New(nil).Resolve(context.Background(), weather.InCity("Bogus"), g)

	var rerr *weather.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, weather.GeocodingFailed, rerr.Kind)
}

func TestResolve_CacheWriteFailureIsNotFatal(t *testing.T) {
	cache := &failingCache{}
	g := &countingGeocoder{place: paris}

	place, err := New(cache).Resolve(context.Background(), weather.InCity("Paris"), g)
	require.NoError(t, err)
	assert.Equal(t, paris, place)
	assert.Equal(t, 1, cache.puts)
}

func TestResolve_FillsMissingName(t *testing.T) {
	g := &countingGeocoder{place: weather.Place{Coordinates: paris.Coordinates}}
	place, err := New(nil).Resolve(context.Background(), weather.InCity("Paris"), g)
	require.NoError(t, err)
	assert.Equal(t, "Paris", place.Name)
}
