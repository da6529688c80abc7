package api

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const tomorrowIOURL = "https://api.tomorrow.io/v4/weather/realtime"

// TomorrowIO is the Tomorrow.io realtime API. It accepts city names.
type TomorrowIO struct {
	client *resty.Client
	url    string
}

// NewTomorrowIO creates a Tomorrow.io provider
func NewTomorrowIO(client *resty.Client) *TomorrowIO {
	return &TomorrowIO{client: client, url: tomorrowIOURL}
}

func (p *TomorrowIO) ID() weather.ProviderID  { return weather.TomorrowIO }
func (p *TomorrowIO) SupportsCityInput() bool { return true }
func (p *TomorrowIO) RequiresAPIKey() bool    { return true }

type tomorrowIOResponse struct {
	Data *struct {
		Values struct {
			Temperature           float64  `json:"temperature"`
			TemperatureApparent   float64  `json:"temperatureApparent"`
			Humidity              float64  `json:"humidity"`
			DewPoint              *float64 `json:"dewPoint"`
			RainIntensity         float64  `json:"rainIntensity"`
			SleetIntensity        float64  `json:"sleetIntensity"`
			SnowIntensity         float64  `json:"snowIntensity"`
			FreezingRainIntensity float64  `json:"freezingRainIntensity"`
			PressureSurfaceLevel  float64  `json:"pressureSurfaceLevel"`
			WindSpeed             float64  `json:"windSpeed"`
			WindDirection         float64  `json:"windDirection"`
			UVIndex               *float64 `json:"uvIndex"`
			WeatherCode           int      `json:"weatherCode"`
		} `json:"values"`
	} `json:"data"`
	Location struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		Name string  `json:"name"`
	} `json:"location"`
}

// Fetch retrieves realtime conditions for a city or coordinates
func (p *TomorrowIO) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	if err := RequireKey(p.ID(), req.APIKey); err != nil {
		return nil, err
	}

	location := req.Location.City()
	if coords, ok := req.Location.Coordinates(); ok {
		location = formatCoord(coords.Lat) + "," + formatCoord(coords.Lon)
	}

	body, err := call{
		provider:  p.ID(),
		operation: "realtime",
		url:       p.url,
		query: map[string]string{
			"location": location,
			"units":    "metric",
			"apikey":   req.APIKey,
		},
		timeout:    req.timeout(),
		apiMessage: tomorrowIOMessage,
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data tomorrowIOResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	if data.Data == nil {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no data block", nil)
	}

	v := data.Data.Values
	report := &weather.Report{
		Temperature:   v.Temperature,
		FeelsLike:     v.TemperatureApparent,
		Condition:     tomorrowIOCondition(v.WeatherCode),
		Description:   tomorrowIODescription(v.WeatherCode),
		WindSpeed:     v.WindSpeed,
		WindDirection: weather.NormalizeDegrees(v.WindDirection),
		Humidity:      v.Humidity,
		Precipitation: v.RainIntensity + v.SleetIntensity + v.SnowIntensity + v.FreezingRainIntensity,
		Pressure:      v.PressureSurfaceLevel,
		DewPoint:      v.DewPoint,
		UVIndex:       v.UVIndex,
		LocationName:  shortPlaceName(data.Location.Name),
		Units:         weather.Metric,
		Provider:      p.ID(),
		FetchedAt:     time.Now(),
	}
	if data.Location.Lat != 0 || data.Location.Lon != 0 {
		report.Coordinates = &weather.Coordinates{Lat: data.Location.Lat, Lon: data.Location.Lon}
	}
	return report.ConvertTo(req.units()), nil
}

// shortPlaceName reduces "Batumi, Adjara, Georgia" to "Batumi, Georgia".
// Long city names are kept on their own.
func shortPlaceName(name string) string {
	parts := strings.Split(name, ",")
	if len(parts) < 2 {
		return strings.TrimSpace(name)
	}
	city := strings.TrimSpace(parts[0])
	country := strings.TrimSpace(parts[len(parts)-1])
	if utf8.RuneCountInString(city) > 20 {
		return city
	}
	return joinNonEmpty(city, country)
}

func tomorrowIOMessage(body []byte) string {
	var e struct {
		Code    int    `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Message
	}
	return ""
}

func tomorrowIOCondition(code int) weather.Condition {
	switch code {
	case 1000:
		return weather.ConditionClear
	case 1100, 1101:
		return weather.ConditionPartlyCloudy
	case 1102, 1001:
		return weather.ConditionCloudy
	case 2000, 2100:
		return weather.ConditionFog
	case 4000, 4200, 6000, 6200:
		return weather.ConditionLightRain
	case 4001, 4201, 6001, 6201:
		return weather.ConditionHeavyRain
	case 5001, 5100, 7102:
		return weather.ConditionLightSnow
	case 5000, 5101, 7000, 7101:
		return weather.ConditionHeavySnow
	case 8000:
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}

var tomorrowIODescriptions = map[int]string{
	1000: "Clear", 1100: "Mostly clear", 1101: "Partly cloudy", 1102: "Mostly cloudy", 1001: "Cloudy",
	2000: "Fog", 2100: "Light fog",
	4000: "Drizzle", 4001: "Rain", 4200: "Light rain", 4201: "Heavy rain",
	5000: "Snow", 5001: "Flurries", 5100: "Light snow", 5101: "Heavy snow",
	6000: "Freezing drizzle", 6001: "Freezing rain", 6200: "Light freezing rain", 6201: "Heavy freezing rain",
	7000: "Ice pellets", 7101: "Heavy ice pellets", 7102: "Light ice pellets",
	8000: "Thunderstorm",
}

func tomorrowIODescription(code int) string {
	if d, ok := tomorrowIODescriptions[code]; ok {
		return d
	}
	return "Unknown"
}
