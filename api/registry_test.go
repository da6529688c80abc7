package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimbus/weather"
)

func TestNew_MatchesCapabilities(t *testing.T) {
	client := NewClient()
	for _, name := range weather.KnownProviders() {
		id := weather.ProviderID(name)
		info := id.Info()

		p, err := New(id, client)
		if info.Auxiliary {
			assert.Error(t, err, "%s should not construct as a weather provider", id)
			continue
		}
		require.NoError(t, err, "provider %s", id)
		assert.Equal(t, id, p.ID())
		assert.Equal(t, info.CityInput, p.SupportsCityInput(), "city input for %s", id)
		assert.Equal(t, info.RequiresKey, p.RequiresAPIKey(), "key requirement for %s", id)
	}

	_, err := New(weather.ProviderID("accuweather"), client)
	assert.Error(t, err)
}

func TestNewClient_NoClientTimeout(t *testing.T) {
	assert.Zero(t, NewClient().GetClient().Timeout, "per-request contexts are the only bound")
}

func TestGeocoderFor(t *testing.T) {
	client := NewClient()
	for _, id := range []weather.ProviderID{weather.OpenMeteo, weather.OpenWeatherMap, weather.WeatherBit, weather.Yr, weather.WeatherAPI} {
		assert.NotNil(t, GeocoderFor(id, client, "", 0, ""), "keyless geocoder for %s", id)
		assert.NotNil(t, GeocoderFor(id, client, "key", time.Second, "en"), "keyed geocoder for %s", id)
	}

	// A keyed geocoder refuses to run once its key is gone
	_, err := NewWeatherBit(client).Geocoder("", time.Second).Geocode(context.Background(), "Kutaisi")
	requireProviderError(t, err, weather.WeatherBit, weather.KindAuth)
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   weather.ErrorKind
	}{
		{http.StatusUnauthorized, weather.KindAuth},
		{http.StatusForbidden, weather.KindAuth},
		{http.StatusTooManyRequests, weather.KindRateLimited},
		{http.StatusBadRequest, weather.KindUnsupportedLocation},
		{http.StatusNotFound, weather.KindUnsupportedLocation},
		{http.StatusInternalServerError, weather.KindNetwork},
		{http.StatusBadGateway, weather.KindNetwork},
		{http.StatusGatewayTimeout, weather.KindNetwork},
		{http.StatusConflict, weather.KindMalformed},
		{http.StatusMovedPermanently, weather.KindMalformed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, kindForStatus(tt.status), "status %d", tt.status)
	}
}

func TestConditionMappings(t *testing.T) {
	t.Run("openweathermap", func(t *testing.T) {
		cases := map[int]weather.Condition{
			200: weather.ConditionThunderstorm, 232: weather.ConditionThunderstorm,
			300: weather.ConditionLightRain, 321: weather.ConditionLightRain,
			500: weather.ConditionLightRain, 520: weather.ConditionLightRain,
			502: weather.ConditionHeavyRain, 531: weather.ConditionHeavyRain,
			600: weather.ConditionLightSnow, 620: weather.ConditionLightSnow,
			601: weather.ConditionHeavySnow, 622: weather.ConditionHeavySnow,
			701: weather.ConditionFog, 781: weather.ConditionFog,
			800: weather.ConditionClear,
			801: weather.ConditionPartlyCloudy, 802: weather.ConditionPartlyCloudy,
			803: weather.ConditionCloudy, 804: weather.ConditionCloudy,
			0: weather.ConditionUnknown, 900: weather.ConditionUnknown,
		}
		for code, want := range cases {
			assert.Equal(t, want, owmCondition(code), "code %d", code)
		}
	})

	t.Run("open-meteo", func(t *testing.T) {
		cases := map[int]weather.Condition{
			0: weather.ConditionClear, 2: weather.ConditionPartlyCloudy, 3: weather.ConditionCloudy,
			45: weather.ConditionFog, 53: weather.ConditionLightRain, 65: weather.ConditionHeavyRain,
			71: weather.ConditionLightSnow, 86: weather.ConditionHeavySnow, 99: weather.ConditionThunderstorm,
			4: weather.ConditionUnknown,
		}
		for code, want := range cases {
			assert.Equal(t, want, openMeteoCondition(code), "code %d", code)
		}
		assert.Equal(t, "Unknown", openMeteoDescription(4))
	})

	t.Run("weatherapi", func(t *testing.T) {
		cases := map[int]weather.Condition{
			1000: weather.ConditionClear, 1003: weather.ConditionPartlyCloudy, 1009: weather.ConditionCloudy,
			1135: weather.ConditionFog, 1183: weather.ConditionLightRain, 1195: weather.ConditionHeavyRain,
			1213: weather.ConditionLightSnow, 1117: weather.ConditionHeavySnow, 1276: weather.ConditionThunderstorm,
			1001: weather.ConditionUnknown,
		}
		for code, want := range cases {
			assert.Equal(t, want, weatherAPICondition(code), "code %d", code)
		}
	})

	t.Run("tomorrow.io", func(t *testing.T) {
		cases := map[int]weather.Condition{
			1000: weather.ConditionClear, 1101: weather.ConditionPartlyCloudy, 1001: weather.ConditionCloudy,
			2100: weather.ConditionFog, 4200: weather.ConditionLightRain, 6201: weather.ConditionHeavyRain,
			5100: weather.ConditionLightSnow, 7000: weather.ConditionHeavySnow, 8000: weather.ConditionThunderstorm,
			0: weather.ConditionUnknown,
		}
		for code, want := range cases {
			assert.Equal(t, want, tomorrowIOCondition(code), "code %d", code)
		}
		assert.Equal(t, "Freezing rain", tomorrowIODescription(6001))
		assert.Equal(t, "Unknown", tomorrowIODescription(42))
	})

	t.Run("world weather online", func(t *testing.T) {
		cases := map[int]weather.Condition{
			113: weather.ConditionClear, 116: weather.ConditionPartlyCloudy, 122: weather.ConditionCloudy,
			248: weather.ConditionFog, 266: weather.ConditionLightRain, 308: weather.ConditionHeavyRain,
			338: weather.ConditionHeavySnow, 389: weather.ConditionThunderstorm,
			999: weather.ConditionUnknown,
		}
		for code, want := range cases {
			assert.Equal(t, want, wwoCondition(code), "code %d", code)
		}
	})

	t.Run("yr", func(t *testing.T) {
		cases := map[string]weather.Condition{
			"clearsky_day":           weather.ConditionClear,
			"clearsky_polartwilight": weather.ConditionClear,
			"partlycloudy_night":     weather.ConditionPartlyCloudy,
			"cloudy":                 weather.ConditionCloudy,
			"fog":                    weather.ConditionFog,
			"lightrain":              weather.ConditionLightRain,
			"lightrainshowers_day":   weather.ConditionLightRain,
			"heavyrain":              weather.ConditionHeavyRain,
			"lightsnow":              weather.ConditionLightSnow,
			"heavysnow":              weather.ConditionHeavySnow,
			"rainandthunder":         weather.ConditionThunderstorm,
			"":                       weather.ConditionUnknown,
			"sleet":                  weather.ConditionUnknown,
		}
		for symbol, want := range cases {
			assert.Equal(t, want, yrCondition(symbol), "symbol %q", symbol)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 150*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "requests within the limit should not wait")

	require.NoError(t, rl.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "third request should wait for the window")
}

func TestRateLimiter_Cancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestLimiterForIsShared(t *testing.T) {
	assert.Same(t, limiterFor(weather.Yr), limiterFor(weather.Yr))
	assert.NotSame(t, limiterFor(weather.Yr), limiterFor(weather.OpenMeteo))
}
