package api

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"nimbus/weather"
)

// New constructs the provider for id. Auxiliary providers cannot be
// constructed this way since they never produce a full report.
func New(id weather.ProviderID, client *resty.Client) (Provider, error) {
	switch id {
	case weather.OpenMeteo:
		return NewOpenMeteo(client), nil
	case weather.OpenWeatherMap:
		return NewOpenWeatherMap(client), nil
	case weather.WorldWeatherOnline:
		return NewWorldWeatherOnline(client), nil
	case weather.WeatherAPI:
		return NewWeatherAPI(client), nil
	case weather.WeatherBit:
		return NewWeatherBit(client), nil
	case weather.TomorrowIO:
		return NewTomorrowIO(client), nil
	case weather.Yr:
		return NewYr(client), nil
	case weather.OpenUV:
		return nil, fmt.Errorf("%s only supplies UV data and cannot be used as a weather provider", id)
	default:
		return nil, fmt.Errorf("unknown provider %q", id)
	}
}

// GeocoderFor returns the geocoder paired with a provider. Providers with
// their own geocoding endpoint use it when a key is available, everything
// else goes through the keyless Open-Meteo search.
func GeocoderFor(id weather.ProviderID, client *resty.Client, apiKey string, timeout time.Duration, language string) Geocoder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	switch id {
	case weather.OpenWeatherMap:
		if apiKey != "" {
			return NewOpenWeatherMap(client).Geocoder(apiKey, timeout)
		}
	case weather.WeatherBit:
		if apiKey != "" {
			return NewWeatherBit(client).Geocoder(apiKey, timeout)
		}
	}
	return NewOpenMeteo(client).Geocoder(timeout, language)
}
