package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const weatherAPIURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPI is the WeatherAPI.com current endpoint. It accepts city names.
type WeatherAPI struct {
	client *resty.Client
	url    string
}

// NewWeatherAPI creates a WeatherAPI.com provider
func NewWeatherAPI(client *resty.Client) *WeatherAPI {
	return &WeatherAPI{client: client, url: weatherAPIURL}
}

func (p *WeatherAPI) ID() weather.ProviderID  { return weather.WeatherAPI }
func (p *WeatherAPI) SupportsCityInput() bool { return true }
func (p *WeatherAPI) RequiresAPIKey() bool    { return true }

type weatherAPIResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	} `json:"location"`
	Current *struct {
		TempC      float64  `json:"temp_c"`
		FeelsLikeC float64  `json:"feelslike_c"`
		WindKph    float64  `json:"wind_kph"`
		WindDegree float64  `json:"wind_degree"`
		WindDir    string   `json:"wind_dir"`
		PressureMb float64  `json:"pressure_mb"`
		PrecipMm   float64  `json:"precip_mm"`
		Humidity   float64  `json:"humidity"`
		DewpointC  *float64 `json:"dewpoint_c"`
		UV         *float64 `json:"uv"`
		Condition  struct {
			Text string `json:"text"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
}

type weatherAPIError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch retrieves current conditions for a city or coordinates
func (p *WeatherAPI) Fetch(ctx context.Context, req Request) (*weather.Report, error) {
	if err := RequireKey(p.ID(), req.APIKey); err != nil {
		return nil, err
	}

	body, err := call{
		provider:  p.ID(),
		operation: "current",
		url:       p.url,
		query: map[string]string{
			"q":    req.Location.Query(),
			"key":  req.APIKey,
			"lang": req.language(),
			"aqi":  "no",
		},
		timeout:    req.timeout(),
		apiMessage: weatherAPIMessage,
		refine:     refineWeatherAPIError,
	}.do(ctx, p.client)
	if err != nil {
		return nil, err
	}

	var data weatherAPIResponse
	if err := decode(p.ID(), body, &data); err != nil {
		return nil, err
	}
	if data.Current == nil {
		return nil, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no current block", nil)
	}

	cur := data.Current
	direction := weather.NormalizeDegrees(cur.WindDegree)
	if cur.WindDegree == 0 {
		if deg, ok := weather.CompassToDegrees(cur.WindDir); ok {
			direction = deg
		}
	}

	report := &weather.Report{
		Temperature:   cur.TempC,
		FeelsLike:     cur.FeelsLikeC,
		Condition:     weatherAPICondition(cur.Condition.Code),
		Description:   cur.Condition.Text,
		WindSpeed:     weather.KilometersPerHourToMetersPerSecond(cur.WindKph),
		WindDirection: direction,
		Humidity:      cur.Humidity,
		Precipitation: cur.PrecipMm,
		Pressure:      cur.PressureMb,
		DewPoint:      cur.DewpointC,
		UVIndex:       cur.UV,
		LocationName:  weatherAPILocationName(data.Location.Name, data.Location.Region, data.Location.Country, data.Location.Lat, data.Location.Lon),
		Units:         weather.Metric,
		Provider:      p.ID(),
		FetchedAt:     time.Now(),
	}
	coords := weather.Coordinates{Lat: data.Location.Lat, Lon: data.Location.Lon}
	if data.Location.Lat != 0 || data.Location.Lon != 0 {
		report.Coordinates = &coords
	}
	return report.ConvertTo(req.units()), nil
}

// weatherAPILocationName drops the region unless both region and country are present
func weatherAPILocationName(name, region, country string, lat, lon float64) string {
	switch {
	case name == "":
		return fmt.Sprintf("%g, %g", lat, lon)
	case region != "" && country != "":
		return name + ", " + region + ", " + country
	case country != "":
		return name + ", " + country
	default:
		return name
	}
}

func weatherAPIMessage(body []byte) string {
	var e weatherAPIError
	if json.Unmarshal(body, &e) == nil && e.Error != nil {
		return e.Error.Message
	}
	return ""
}

// refineWeatherAPIError reclassifies failures using WeatherAPI's own error codes
func refineWeatherAPIError(body []byte, perr *weather.ProviderError) {
	var e weatherAPIError
	if json.Unmarshal(body, &e) != nil || e.Error == nil {
		return
	}
	switch e.Error.Code {
	case 1002, 2006, 2008:
		perr.Kind = weather.KindAuth
	case 2007:
		perr.Kind = weather.KindRateLimited
	case 1003, 1006:
		perr.Kind = weather.KindUnsupportedLocation
	}
}

// weatherAPICondition maps WeatherAPI.com condition codes
func weatherAPICondition(code int) weather.Condition {
	switch code {
	case 1000:
		return weather.ConditionClear
	case 1003:
		return weather.ConditionPartlyCloudy
	case 1006, 1009:
		return weather.ConditionCloudy
	case 1030, 1135, 1147:
		return weather.ConditionFog
	case 1063, 1150, 1153, 1180, 1183, 1240, 1249, 1252:
		return weather.ConditionLightRain
	case 1186, 1189, 1192, 1195, 1243, 1246:
		return weather.ConditionHeavyRain
	case 1066, 1069, 1072, 1210, 1213, 1216, 1219, 1222, 1225, 1237, 1255:
		return weather.ConditionLightSnow
	case 1114, 1117, 1228, 1231, 1258:
		return weather.ConditionHeavySnow
	case 1087, 1273, 1276, 1279, 1282:
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}
