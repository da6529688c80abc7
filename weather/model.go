package weather

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates represents latitude and longitude in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat" toml:"lat"`
	Lon float64 `json:"lon" toml:"lon"`
}

// Valid reports whether the coordinates are within geographic bounds
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Location is either a pair of coordinates or a city name awaiting resolution.
type Location struct {
	city   string
	coords *Coordinates
}

// AtCoordinates returns a resolved location
func AtCoordinates(lat, lon float64) Location {
	return Location{coords: &Coordinates{Lat: lat, Lon: lon}}
}

// InCity returns an unresolved location for the given city name
func InCity(name string) Location {
	return Location{city: strings.TrimSpace(name)}
}

// IsResolved reports whether the location already carries coordinates
func (l Location) IsResolved() bool {
	return l.coords != nil
}

// City returns the city name, empty for coordinate locations
func (l Location) City() string {
	return l.city
}

// Coordinates returns the coordinates and whether they are known
func (l Location) Coordinates() (Coordinates, bool) {
	if l.coords == nil {
		return Coordinates{}, false
	}
	return *l.coords, true
}

// IsZero reports whether neither a city nor coordinates were given
func (l Location) IsZero() bool {
	return l.coords == nil && l.city == ""
}

// Query renders the location the way providers accepting free-form input expect it
func (l Location) Query() string {
	if l.coords != nil {
		return fmt.Sprintf("%g,%g", l.coords.Lat, l.coords.Lon)
	}
	return l.city
}

func (l Location) String() string {
	if l.coords != nil {
		return l.coords.String()
	}
	return l.city
}

// Place is a geocoding result: a display label and its coordinates
type Place struct {
	Name string
	Coordinates
}

// Condition is the provider-independent weather condition
type Condition string

const (
	ConditionUnknown      Condition = "unknown"
	ConditionClear        Condition = "clear"
	ConditionPartlyCloudy Condition = "partly_cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionFog          Condition = "fog"
	ConditionLightRain    Condition = "light_rain"
	ConditionHeavyRain    Condition = "heavy_rain"
	ConditionLightSnow    Condition = "light_snow"
	ConditionHeavySnow    Condition = "heavy_snow"
	ConditionThunderstorm Condition = "thunderstorm"
)

// Label returns a human readable name for the condition
func (c Condition) Label() string {
	switch c {
	case ConditionClear:
		return "Clear"
	case ConditionPartlyCloudy:
		return "Partly cloudy"
	case ConditionCloudy:
		return "Cloudy"
	case ConditionFog:
		return "Fog"
	case ConditionLightRain:
		return "Light rain"
	case ConditionHeavyRain:
		return "Heavy rain"
	case ConditionLightSnow:
		return "Light snow"
	case ConditionHeavySnow:
		return "Heavy snow"
	case ConditionThunderstorm:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}

// Units selects the unit system of every numeric field in a Report
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

// ParseUnits accepts "metric" or "imperial" in any case
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	default:
		return "", fmt.Errorf("unknown units %q (expected metric or imperial)", s)
	}
}

// Suffix returns the display suffix for a measurement in this unit system
func (u Units) Suffix(measurement string) string {
	imperial := u == Imperial
	switch measurement {
	case "temperature":
		if imperial {
			return "°F"
		}
		return "°C"
	case "wind":
		if imperial {
			return "mph"
		}
		return "m/s"
	case "precipitation":
		if imperial {
			return "in"
		}
		return "mm"
	case "pressure":
		if imperial {
			return "inHg"
		}
		return "hPa"
	default:
		return ""
	}
}

// Report is the normalized current-conditions record produced by every provider.
// All numeric fields are expressed in Units.
type Report struct {
	Temperature   float64      `json:"temperature"`
	FeelsLike     float64      `json:"feels_like"`
	Condition     Condition    `json:"condition"`
	Description   string       `json:"description"`
	WindSpeed     float64      `json:"wind_speed"`
	WindDirection int          `json:"wind_direction"`
	Humidity      float64      `json:"humidity"`
	Precipitation float64      `json:"precipitation"`
	Pressure      float64      `json:"pressure"`
	DewPoint      *float64     `json:"dew_point,omitempty"`
	UVIndex       *float64     `json:"uv_index,omitempty"`
	LocationName  string       `json:"location,omitempty"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Units         Units        `json:"units"`
	Provider      ProviderID   `json:"provider"`
	FetchedAt     time.Time    `json:"fetched_at"`
}
