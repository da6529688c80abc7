package api

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nimbus/weather"
)

const yrURL = "https://api.met.no/weatherapi/locationforecast/2.0/compact"

// Yr is the MET Norway locationforecast API. It is keyless and needs coordinates.
type Yr struct {
	client *resty.Client
	url    string
}

// NewYr creates a MET Norway provider
func NewYr(client *resty.Client) *Yr {
	return &Yr{client: client, url: yrURL}
}

func (p *Yr) ID() weather.ProviderID  { return weather.Yr }
func (p *Yr) SupportsCityInput() bool { return false }
func (p *Yr) RequiresAPIKey() bool    { return false }

type yrResponse struct {
	Properties struct {
		Timeseries []struct {
			Time time.Time `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						AirTemperature        *float64 `json:"air_temperature"`
						RelativeHumidity      float64  `json:"relative_humidity"`
						WindSpeed             float64  `json:"wind_speed"`
						WindFromDirection     *float64 `json:"wind_from_direction"`
						PrecipitationAmount   *float64 `json:"precipitation_amount"`
						AirPressureAtSeaLevel float64  `json:"air_pressure_at_sea_level"`
					} `json:"details"`
				} `json:"instant"`
				Next1Hours *struct {
					Summary struct {
						SymbolCode string `json:"symbol_code"`
					} `json:"summary"`
					Details struct {
						PrecipitationAmount float64 `json:"precipitation_amount"`
					} `json:"details"`
				} `json:"next_1_hours"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

// Fetch retrieves the nearest forecast step for resolved coordinates
func (p *Yr) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	coords, err := requireCoordinates(p.ID(), req.Location)
	if err != nil {
		return nil, err
	}

	body, err := call{
		provider:  p.ID(),
		operation: "locationforecast",
		url:       p.url,
		query: map[string]string{
			"lat": formatCoord(coords.Lat),
			"lon": formatCoord(coords.Lon),
		},
		timeout: req.timeout(),
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data yrResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	if len(data.Properties.Timeseries) == 0 {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no timeseries", nil)
	}

	step := data.Properties.Timeseries[0].Data
	details := step.Instant.Details
	if details.AirTemperature == nil {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "missing air_temperature", nil)
	}

	temp := *details.AirTemperature
	report := &weather.Report{
		Temperature: temp,
		FeelsLike:   weather.ApparentTemperature(temp, details.WindSpeed, details.RelativeHumidity),
		Condition:   weather.ConditionUnknown,
		WindSpeed:   details.WindSpeed,
		Humidity:    details.RelativeHumidity,
		Pressure:    details.AirPressureAtSeaLevel,
		Coordinates: &coords,
		Units:       weather.Metric,
		Provider:    p.ID(),
		FetchedAt:   time.Now(),
	}
	if details.WindFromDirection != nil {
		report.WindDirection = weather.NormalizeDegrees(*details.WindFromDirection)
	}
	if details.PrecipitationAmount != nil {
		report.Precipitation = *details.PrecipitationAmount
	}
	if step.Next1Hours != nil {
		report.Condition = yrCondition(step.Next1Hours.Summary.SymbolCode)
		if details.PrecipitationAmount == nil {
			report.Precipitation = step.Next1Hours.Details.PrecipitationAmount
		}
	}
	report.Description = report.Condition.Label()
	return report.ConvertTo(req.units()), nil
}

// yrCondition maps MET Norway symbol codes. Day, night and polar twilight
// variants share a condition.
func yrCondition(symbol string) weather.Condition {
	base := symbol
	if i := strings.IndexByte(symbol, '_'); i >= 0 {
		base = symbol[:i]
	}
	switch base {
	case "clearsky", "fair":
		return weather.ConditionClear
	case "partlycloudy":
		return weather.ConditionPartlyCloudy
	case "cloudy":
		return weather.ConditionCloudy
	case "fog":
		return weather.ConditionFog
	case "rain", "lightrain", "lightrainshowers", "rainshowers":
		return weather.ConditionLightRain
	case "heavyrain", "heavyrainshowers":
		return weather.ConditionHeavyRain
	case "snow", "lightsnow", "lightsnowshowers", "snowshowers":
		return weather.ConditionLightSnow
	case "heavysnow", "heavysnowshowers":
		return weather.ConditionHeavySnow
	}
	if strings.Contains(base, "thunder") {
		return weather.ConditionThunderstorm
	}
	return weather.ConditionUnknown
}
