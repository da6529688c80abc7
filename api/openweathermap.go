package api

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const (
	openWeatherMapURL          = "https://api.openweathermap.org/data/2.5/weather"
	openWeatherMapGeocodingURL = "https://api.openweathermap.org/geo/1.0/direct"
)

// OpenWeatherMap is the OpenWeatherMap current weather API. It needs coordinates.
type OpenWeatherMap struct {
	client       *resty.Client
	url          string
	geocodingURL string
}

// NewOpenWeatherMap creates an OpenWeatherMap provider
func NewOpenWeatherMap(client *resty.Client) *OpenWeatherMap {
	return &OpenWeatherMap{
		client:       client,
		url:          openWeatherMapURL,
		geocodingURL: openWeatherMapGeocodingURL,
	}
}

func (p *OpenWeatherMap) ID() weather.ProviderID  { return weather.OpenWeatherMap }
func (p *OpenWeatherMap) SupportsCityInput() bool { return false }
func (p *OpenWeatherMap) RequiresAPIKey() bool    { return true }

type openWeatherMapResponse struct {
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Fetch retrieves current conditions for resolved coordinates
func (p *OpenWeatherMap) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	if err := RequireKey(p.ID(), req.APIKey); err != nil {
		return nil, err
	}
	coords, err := requireCoordinates(p.ID(), req.Location)
	if err != nil {
		return nil, err
	}

	body, err := call{
		provider:  p.ID(),
		operation: "current",
		url:       p.url,
		query: map[string]string{
			"lat":   formatCoord(coords.Lat),
			"lon":   formatCoord(coords.Lon),
			"units": "metric",
			"lang":  req.language(),
			"appid": req.APIKey,
		},
		timeout:    req.timeout(),
		apiMessage: openWeatherMapMessage,
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data openWeatherMapResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	if data.Main == nil {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no main block", nil)
	}

	report := &weather.Report{
		Temperature:   data.Main.Temp,
		FeelsLike:     data.Main.FeelsLike,
		Condition:     weather.ConditionUnknown,
		Description:   "Unknown",
		WindSpeed:     data.Wind.Speed,
		WindDirection: weather.NormalizeDegrees(data.Wind.Deg),
		Humidity:      data.Main.Humidity,
		Precipitation: data.Rain.OneHour + data.Snow.OneHour,
		Pressure:      data.Main.Pressure,
		LocationName:  joinNonEmpty(data.Name, data.Sys.Country),
		Coordinates:   &coords,
		Units:         weather.Metric,
		Provider:      p.ID(),
		FetchedAt:     time.Now(),
	}
	if len(data.Weather) > 0 {
		report.Condition = owmCondition(data.Weather[0].ID)
		report.Description = capitalize(data.Weather[0].Description)
	}
	return report.ConvertTo(req.units()), nil
}

type openWeatherMapPlace struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// Geocoder returns OpenWeatherMap direct geocoding bound to the given key
func (p *OpenWeatherMap) Geocoder(apiKey string, timeout time.Duration) Geocoder {
	return GeocoderFunc(func(ctx context.Context, city string) (weather.Place, error) {
		if err := RequireKey(p.ID(), apiKey); err != nil {
			return weather.Place{}, err
		}

		body, err := call{
			provider:  p.ID(),
			operation: "geocode",
			url:       p.geocodingURL,
			query: map[string]string{
				"q":     city,
				"limit": "1",
				"appid": apiKey,
			},
			timeout:    timeout,
			apiMessage: openWeatherMapMessage,
		}.do(ctx, p.client)
		if err != nil {
			return weather.Place{}, err
		}

		var places []openWeatherMapPlace
		if err := decode(p.ID(), body, &places); err != nil {
			return weather.Place{}, err
		}
		if len(places) == 0 {
			return weather.Place{}, weather.ErrCityNotFound
		}

		r := places[0]
		return weather.Place{
			Name:        joinNonEmpty(r.Name, r.State, r.Country),
			Coordinates: weather.Coordinates{Lat: r.Lat, Lon: r.Lon},
		}, nil
	})
}

// openWeatherMapMessage extracts the message from {"cod": ..., "message": ...}
func openWeatherMapMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Message
	}
	return ""
}

// owmCondition maps OpenWeatherMap condition ids. WeatherBit uses the same scheme.
func owmCondition(code int) weather.Condition {
	switch {
	case code >= 200 && code <= 232:
		return weather.ConditionThunderstorm
	case code >= 300 && code <= 321, code == 500, code == 520:
		return weather.ConditionLightRain
	case code >= 500 && code <= 531:
		return weather.ConditionHeavyRain
	case code == 600, code == 612, code == 615, code == 620:
		return weather.ConditionLightSnow
	case code >= 601 && code <= 622:
		return weather.ConditionHeavySnow
	case code >= 701 && code <= 781:
		return weather.ConditionFog
	case code == 800:
		return weather.ConditionClear
	case code == 801, code == 802:
		return weather.ConditionPartlyCloudy
	case code == 803, code == 804:
		return weather.ConditionCloudy
	default:
		return weather.ConditionUnknown
	}
}

// capitalize upper-cases the first letter of a localized description
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
