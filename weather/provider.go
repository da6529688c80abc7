package weather

import (
	"fmt"
	"sort"
	"strings"
)

// ProviderID identifies one member of the closed set of supported providers
type ProviderID string

const (
	OpenMeteo          ProviderID = "open_meteo"
	OpenWeatherMap     ProviderID = "open_weather_map"
	WorldWeatherOnline ProviderID = "world_weather_online"
	WeatherAPI         ProviderID = "weather_api"
	WeatherBit         ProviderID = "weather_bit"
	TomorrowIO         ProviderID = "tomorrow_io"
	Yr                 ProviderID = "yr"
	OpenUV             ProviderID = "open_uv"
)

// ProviderInfo describes the static capabilities of a provider
type ProviderInfo struct {
	Name        string
	Aliases     []string
	CityInput   bool   // accepts a city name without a separate geocoding step
	RequiresKey bool   // refuses to run without an API key
	KeySlot     string // config key under [api_keys]
	Auxiliary   bool   // only augments a report produced by another provider
}

var providerInfo = map[ProviderID]ProviderInfo{
	OpenMeteo: {
		Name:    "Open-Meteo",
		Aliases: []string{"om"},
	},
	OpenWeatherMap: {
		Name:        "OpenWeatherMap",
		Aliases:     []string{"owm"},
		RequiresKey: true,
		KeySlot:     "open_weather_map",
	},
	WorldWeatherOnline: {
		Name:        "World Weather Online",
		Aliases:     []string{"wwo"},
		CityInput:   true,
		RequiresKey: true,
		KeySlot:     "world_weather_online",
	},
	WeatherAPI: {
		Name:        "WeatherAPI.com",
		Aliases:     []string{"wa"},
		CityInput:   true,
		RequiresKey: true,
		KeySlot:     "weather_api",
	},
	WeatherBit: {
		Name:        "Weatherbit",
		Aliases:     []string{"wb"},
		RequiresKey: true,
		KeySlot:     "weather_bit",
	},
	TomorrowIO: {
		Name:        "Tomorrow.io",
		Aliases:     []string{"tio"},
		CityInput:   true,
		RequiresKey: true,
		KeySlot:     "tomorrow_io",
	},
	Yr: {
		Name:    "Yr (MET Norway)",
		Aliases: []string{"met"},
	},
	OpenUV: {
		Name:        "OpenUV",
		Aliases:     []string{"uv"},
		RequiresKey: true,
		KeySlot:     "open_uv",
		Auxiliary:   true,
	},
}

// Info returns the static description of the provider
func (id ProviderID) Info() ProviderInfo {
	return providerInfo[id]
}

// Valid reports whether id names a known provider
func (id ProviderID) Valid() bool {
	_, ok := providerInfo[id]
	return ok
}

func (id ProviderID) String() string {
	return string(id)
}

// ParseProviderID accepts canonical names and short aliases in any case.
// Hyphens are treated as underscores.
func ParseProviderID(s string) (ProviderID, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if name == "" {
		return "", fmt.Errorf("empty provider name")
	}
	for id, info := range providerInfo {
		if string(id) == name {
			return id, nil
		}
		for _, alias := range info.Aliases {
			if alias == name {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("unknown provider %q (known: %s)", s, strings.Join(KnownProviders(), ", "))
}

// KnownProviders lists canonical names of all providers, sorted
func KnownProviders() []string {
	names := make([]string, 0, len(providerInfo))
	for id := range providerInfo {
		names = append(names, string(id))
	}
	sort.Strings(names)
	return names
}
