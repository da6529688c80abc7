package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const worldWeatherOnlineURL = "https://api.worldweatheronline.com/premium/v1/weather.ashx"

// WorldWeatherOnline is the World Weather Online premium API. It accepts city names.
type WorldWeatherOnline struct {
	client *resty.Client
	url    string
}

// NewWorldWeatherOnline creates a World Weather Online provider
func NewWorldWeatherOnline(client *resty.Client) *WorldWeatherOnline {
	return &WorldWeatherOnline{client: client, url: worldWeatherOnlineURL}
}

func (p *WorldWeatherOnline) ID() weather.ProviderID  { return weather.WorldWeatherOnline }
func (p *WorldWeatherOnline) SupportsCityInput() bool { return true }
func (p *WorldWeatherOnline) RequiresAPIKey() bool    { return true }

type wwoValue struct {
	Value string `json:"value"`
}

// WWO encodes every number as a string
type worldWeatherOnlineResponse struct {
	Data struct {
		Request []struct {
			Query string `json:"query"`
			Type  string `json:"type"`
		} `json:"request"`
		CurrentCondition []struct {
			TempC         string     `json:"temp_C"`
			FeelsLikeC    string     `json:"FeelsLikeC"`
			Humidity      string     `json:"humidity"`
			WeatherCode   string     `json:"weatherCode"`
			WeatherDesc   []wwoValue `json:"weatherDesc"`
			WindspeedKmph string     `json:"windspeedKmph"`
			WinddirDegree string     `json:"winddirDegree"`
			PrecipMM      string     `json:"precipMM"`
			Pressure      string     `json:"pressure"`
			UVIndex       string     `json:"uvIndex"`
		} `json:"current_condition"`
		Error []struct {
			Msg string `json:"msg"`
		} `json:"error"`
	} `json:"data"`
}

// Fetch retrieves current conditions for a city or coordinates
func (p *WorldWeatherOnline) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	if err := RequireKey(p.ID(), req.APIKey); err != nil {
		return nil, err
	}

	body, err := call{
		provider:  p.ID(),
		operation: "current",
		url:       p.url,
		query: map[string]string{
			"q":      req.Location.Query(),
			"key":    req.APIKey,
			"format": "json",
			"lang":   req.language(),
			"fx":     "no",
			"mca":    "no",
		},
		timeout:    req.timeout(),
		apiMessage: worldWeatherOnlineMessage,
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data worldWeatherOnlineResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	// WWO reports unknown locations with HTTP 200 and an error list
	if len(data.Data.Error) > 0 {
		return nil, weather.NewProviderError(p.ID(), weather.KindUnsupportedLocation, data.Data.Error[0].Msg, nil)
	}
	if len(data.Data.CurrentCondition) == 0 {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no current condition", nil)
	}

	cur := data.Data.CurrentCondition[0]
	nums := wwoNumbers{}
	report := &weather.Report{
		Temperature:   nums.parse("temp_C", cur.TempC),
		FeelsLike:     nums.parse("FeelsLikeC", cur.FeelsLikeC),
		Humidity:      nums.parse("humidity", cur.Humidity),
		WindSpeed:     weather.KilometersPerHourToMetersPerSecond(nums.parse("windspeedKmph", cur.WindspeedKmph)),
		WindDirection: weather.NormalizeDegrees(nums.parse("winddirDegree", cur.WinddirDegree)),
		Precipitation: nums.parse("precipMM", cur.PrecipMM),
		Pressure:      nums.parse("pressure", cur.Pressure),
		Units:         weather.Metric,
		Provider:      p.ID(),
		FetchedAt:     time.Now(),
	}
	if nums.err != nil {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, nums.field, nums.err)
	}

	code, _ := strconv.Atoi(strings.TrimSpace(cur.WeatherCode))
	report.Condition = wwoCondition(code)
	report.Description = report.Condition.Label()
	if len(cur.WeatherDesc) > 0 && cur.WeatherDesc[0].Value != "" {
		report.Description = strings.TrimSpace(cur.WeatherDesc[0].Value)
	}
	if uv, err := strconv.ParseFloat(strings.TrimSpace(cur.UVIndex), 64); err == nil {
		report.UVIndex = &uv
	}
	if len(data.Data.Request) > 0 {
		report.LocationName = data.Data.Request[0].Query
	}
	if coords, ok := req.Location.Coordinates(); ok {
		report.Coordinates = &coords
	}
	return report.ConvertTo(req.units()), nil
}

// wwoNumbers parses string encoded numbers, keeping the first failure
type wwoNumbers struct {
	field string
	err   error
}

func (n *wwoNumbers) parse(field, s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && n.err == nil {
		n.field = "invalid " + field
		n.err = err
	}
	return v
}

func worldWeatherOnlineMessage(body []byte) string {
	var e worldWeatherOnlineResponse
	if json.Unmarshal(body, &e) == nil && len(e.Data.Error) > 0 {
		return e.Data.Error[0].Msg
	}
	return ""
}

func wwoCondition(code int) weather.Condition {
	switch code {
	case 113:
		return weather.ConditionClear
	case 116:
		return weather.ConditionPartlyCloudy
	case 119, 122:
		return weather.ConditionCloudy
	case 143, 248, 260:
		return weather.ConditionFog
	case 263, 266, 281, 284:
		return weather.ConditionLightRain
	case 176, 293, 296, 299, 302, 305, 308, 311, 314, 317, 320, 353, 356, 359, 362, 365, 374, 377:
		return weather.ConditionHeavyRain
	case 179, 227, 230, 323, 326, 329, 332, 335, 338, 368, 371:
		return weather.ConditionHeavySnow
	case 200, 386, 389, 392, 395:
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}
