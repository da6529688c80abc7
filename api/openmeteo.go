package api

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const (
	openMeteoForecastURL  = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	openMeteoCurrentFields = "temperature_2m,apparent_temperature,relative_humidity_2m,precipitation,surface_pressure,wind_speed_10m,wind_direction_10m,weather_code"
)

// OpenMeteo is the keyless Open-Meteo forecast API. It needs coordinates.
type OpenMeteo struct {
	client       *resty.Client
	forecastURL  string
	geocodingURL string
}

// NewOpenMeteo creates an Open-Meteo provider
func NewOpenMeteo(client *resty.Client) *OpenMeteo {
	return &OpenMeteo{
		client:       client,
		forecastURL:  openMeteoForecastURL,
		geocodingURL: openMeteoGeocodingURL,
	}
}

func (p *OpenMeteo) ID() weather.ProviderID  { return weather.OpenMeteo }
func (p *OpenMeteo) SupportsCityInput() bool { return false }
func (p *OpenMeteo) RequiresAPIKey() bool    { return false }

type openMeteoResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   *struct {
		Temperature   float64 `json:"temperature_2m"`
		FeelsLike     float64 `json:"apparent_temperature"`
		Humidity      float64 `json:"relative_humidity_2m"`
		Precipitation float64 `json:"precipitation"`
		Pressure      float64 `json:"surface_pressure"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

// Fetch retrieves current conditions for resolved coordinates
func (p *OpenMeteo) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	coords, err := requireCoordinates(p.ID(), req.Location)
	if err != nil {
		return nil, err
	}

	body, err := call{
		provider:  p.ID(),
		operation: "current",
		url:       p.forecastURL,
		query: map[string]string{
			"latitude":           formatCoord(coords.Lat),
			"longitude":          formatCoord(coords.Lon),
			"current":            openMeteoCurrentFields,
			"temperature_unit":   "celsius",
			"wind_speed_unit":    "ms",
			"precipitation_unit": "mm",
		},
		timeout:    req.timeout(),
		apiMessage: openMeteoReason,
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data openMeteoResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	if data.Current == nil {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no current block", nil)
	}

	cur := data.Current
	condition := openMeteoCondition(cur.WeatherCode)
	report := &weather.Report{
		Temperature:   cur.Temperature,
		FeelsLike:     cur.FeelsLike,
		Condition:     condition,
		Description:   openMeteoDescription(cur.WeatherCode),
		WindSpeed:     cur.WindSpeed,
		WindDirection: weather.NormalizeDegrees(cur.WindDirection),
		Humidity:      cur.Humidity,
		Precipitation: cur.Precipitation,
		Pressure:      cur.Pressure,
		Coordinates:   &coords,
		Units:         weather.Metric,
		Provider:      p.ID(),
		FetchedAt:     time.Now(),
	}
	return report.ConvertTo(req.units()), nil
}

type openMeteoGeocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
	} `json:"results"`
}

// Geocoder returns the Open-Meteo geocoding search, usable by any provider
func (p *OpenMeteo) Geocoder(timeout time.Duration, language string) Geocoder {
	return GeocoderFunc(func(ctx context.Context, city string) (weather.Place, error) {
		return p.geocode(ctx, city, timeout, language)
	})
}

func (p *OpenMeteo) geocode(ctx context.Context, city string, timeout time.Duration, language string) (weather.Place, error) {
	if language == "" {
		language = "en"
	}
	body, err := call{
		provider:  p.ID(),
		operation: "geocode",
		url:       p.geocodingURL,
		query: map[string]string{
			"name":     city,
			"count":    "1",
			"language": language,
			"format":   "json",
		},
		timeout:    timeout,
		apiMessage: openMeteoReason,
	}.do(ctx, p.client)
	if err != nil {
		return weather.Place{}, err
	}

	var data openMeteoGeocodingResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return weather.Place{}, err
	}
	if len(data.Results) == 0 {
		return weather.Place{}, weather.ErrCityNotFound
	}

	r := data.Results[0]
	return weather.Place{
		Name:        joinNonEmpty(r.Name, r.Country),
		Coordinates: weather.Coordinates{Lat: r.Latitude, Lon: r.Longitude},
	}, nil
}

func openMeteoReason(body []byte) string {
	var e struct {
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error {
		return e.Reason
	}
	return ""
}

// openMeteoCondition maps WMO weather interpretation codes
func openMeteoCondition(code int) weather.Condition {
	switch code {
	case 0:
		return weather.ConditionClear
	case 1, 2:
		return weather.ConditionPartlyCloudy
	case 3:
		return weather.ConditionCloudy
	case 45, 48:
		return weather.ConditionFog
	case 51, 53, 55, 56, 57, 80:
		return weather.ConditionLightRain
	case 61, 63, 65, 66, 67, 81, 82:
		return weather.ConditionHeavyRain
	case 71, 73:
		return weather.ConditionLightSnow
	case 75, 77, 85, 86:
		return weather.ConditionHeavySnow
	case 95, 96, 99:
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}

var openMeteoDescriptions = map[int]string{
	0: "Clear sky", 1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
	45: "Fog", 48: "Depositing rime fog",
	51: "Light drizzle", 53: "Moderate drizzle", 55: "Dense drizzle",
	56: "Light freezing drizzle", 57: "Dense freezing drizzle",
	61: "Slight rain", 63: "Moderate rain", 65: "Heavy rain",
	66: "Light freezing rain", 67: "Heavy freezing rain",
	71: "Slight snow fall", 73: "Moderate snow fall", 75: "Heavy snow fall", 77: "Snow grains",
	80: "Slight rain showers", 81: "Moderate rain showers", 82: "Violent rain showers",
	85: "Slight snow showers", 86: "Heavy snow showers",
	95: "Thunderstorm", 96: "Thunderstorm with slight hail", 99: "Thunderstorm with heavy hail",
}

func openMeteoDescription(code int) string {
	if d, ok := openMeteoDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
