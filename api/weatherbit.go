package api

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const (
	weatherBitURL          = "https://api.weatherbit.io/v2.0/current"
	weatherBitGeocodingURL = "https://api.weatherbit.io/v2.0/geocode"
)

// WeatherBit is the Weatherbit current observations API. It needs coordinates.
type WeatherBit struct {
	client       *resty.Client
	url          string
	geocodingURL string
}

// NewWeatherBit creates a Weatherbit provider
func NewWeatherBit(client *resty.Client) *WeatherBit {
	return &WeatherBit{
		client:       client,
		url:          weatherBitURL,
		geocodingURL: weatherBitGeocodingURL,
	}
}

func (p *WeatherBit) ID() weather.ProviderID  { return weather.WeatherBit }
func (p *WeatherBit) SupportsCityInput() bool { return false }
func (p *WeatherBit) RequiresAPIKey() bool    { return true }

type weatherBitResponse struct {
	Data []struct {
		AppTemp     float64  `json:"app_temp"`
		CityName    string   `json:"city_name"`
		CountryCode string   `json:"country_code"`
		Dewpt       *float64 `json:"dewpt"`
		Precip      float64  `json:"precip"`
		Pres        float64  `json:"pres"`
		RH          float64  `json:"rh"`
		Temp        float64  `json:"temp"`
		UV          *float64 `json:"uv"`
		WindDir     float64  `json:"wind_dir"`
		WindSpd     float64  `json:"wind_spd"`
		Weather     struct {
			Description string `json:"description"`
			Code        int    `json:"code"`
		} `json:"weather"`
	} `json:"data"`
}

// Fetch retrieves current conditions for resolved coordinates
func (p *WeatherBit) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
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
			"key":   req.APIKey,
			"lang":  req.language(),
			"units": "M",
		},
		timeout:    req.timeout(),
		apiMessage: weatherBitMessage,
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data weatherBitResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	if len(data.Data) == 0 {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no observations", nil)
	}

	obs := data.Data[0]
	report := &weather.Report{
		Temperature:   obs.Temp,
		FeelsLike:     obs.AppTemp,
		Condition:     owmCondition(obs.Weather.Code),
		Description:   obs.Weather.Description,
		WindSpeed:     obs.WindSpd,
		WindDirection: weather.NormalizeDegrees(obs.WindDir),
		Humidity:      obs.RH,
		Precipitation: obs.Precip,
		Pressure:      obs.Pres,
		DewPoint:      obs.Dewpt,
		UVIndex:       obs.UV,
		LocationName:  joinNonEmpty(obs.CityName, obs.CountryCode),
		Coordinates:   &coords,
		Units:         weather.Metric,
		Provider:      p.ID(),
		FetchedAt:     time.Now(),
	}
	return report.ConvertTo(req.units()), nil
}

// Geocoder returns Weatherbit's city lookup bound to the given key
func (p *WeatherBit) Geocoder(apiKey string, timeout time.Duration) Geocoder {
	return GeocoderFunc(func(ctx context.Context, city string) (weather.Place, error) {
		if err := RequireKey(p.ID(), apiKey); err != nil {
			return weather.Place{}, err
		}

		body, err := call{
			provider:  p.ID(),
			operation: "geocode",
			url:       p.geocodingURL,
			query: map[string]string{
				"city": city,
				"key":  apiKey,
			},
			timeout:    timeout,
			apiMessage: weatherBitMessage,
		}.do(ctx, p.client)
		if err != nil {
			return weather.Place{}, err
		}

		var r struct {
			Name  string   `json:"name"`
			Lat   *float64 `json:"lat"`
			Lon   *float64 `json:"lon"`
			Error string   `json:"error"`
		}
		if err := decode(p.ID(), body, &r); err != nil {
			return weather.Place{}, err
		}
		if r.Error != "" || r.Lat == nil || r.Lon == nil {
			return weather.Place{}, weather.ErrCityNotFound
		}
		return weather.Place{
			Name:        r.Name,
			Coordinates: weather.Coordinates{Lat: *r.Lat, Lon: *r.Lon},
		}, nil
	})
}

func weatherBitMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}
