package weather

import (
	"errors"
	"strings"
	"testing"
)

func TestParseProviderID(t *testing.T) {
	tests := []struct {
		input    string
		expected ProviderID
		wantErr  bool
	}{
		{"open_meteo", OpenMeteo, false},
		{"om", OpenMeteo, false},
		{"OWM", OpenWeatherMap, false},
		{"open-weather-map", OpenWeatherMap, false},
		{"wwo", WorldWeatherOnline, false},
		{"wa", WeatherAPI, false},
		{"wb", WeatherBit, false},
		{"tio", TomorrowIO, false},
		{" yr ", Yr, false},
		{"uv", OpenUV, false},
		{"accuweather", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := ParseProviderID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %s", tt.input, id)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("ParseProviderID(%q) = %s, expected %s", tt.input, id, tt.expected)
			}
		})
	}
}

func TestProviderInfoCapabilities(t *testing.T) {
	if OpenMeteo.Info().RequiresKey {
		t.Error("Open-Meteo must not require a key")
	}
	if OpenMeteo.Info().CityInput {
		t.Error("Open-Meteo needs coordinates")
	}
	if !WeatherAPI.Info().CityInput || !WeatherAPI.Info().RequiresKey {
		t.Error("WeatherAPI accepts city names and requires a key")
	}
	if !OpenUV.Info().Auxiliary {
		t.Error("OpenUV is auxiliary")
	}
	for _, name := range KnownProviders() {
		id := ProviderID(name)
		info := id.Info()
		if info.RequiresKey && info.KeySlot == "" {
			t.Errorf("%s requires a key but has no key slot", id)
		}
	}
}

func TestParseUnits(t *testing.T) {
	if u, err := ParseUnits("Imperial"); err != nil || u != Imperial {
		t.Errorf("ParseUnits(Imperial) = %s, %v", u, err)
	}
	if _, err := ParseUnits("kelvin"); err == nil {
		t.Error("Expected kelvin to be rejected")
	}
}

func TestLocation(t *testing.T) {
	city := InCity("  Batumi ")
	if city.IsResolved() {
		t.Error("City location must not be resolved")
	}
	if city.City() != "Batumi" {
		t.Errorf("Expected trimmed city name, got %q", city.City())
	}

	loc := AtCoordinates(41.64, 41.63)
	c, ok := loc.Coordinates()
	if !ok || c.Lat != 41.64 || c.Lon != 41.63 {
		t.Errorf("Unexpected coordinates %v %v", c, ok)
	}
	if loc.Query() != "41.64,41.63" {
		t.Errorf("Unexpected query %q", loc.Query())
	}
	if !(Location{}).IsZero() {
		t.Error("Expected zero location")
	}
}

func TestAggregateFetchError(t *testing.T) {
	agg := &AggregateFetchError{Failures: []*ProviderError{
		NewProviderError(OpenWeatherMap, KindAuth, "", ErrMissingAPIKey),
		NewProviderError(OpenMeteo, KindNetwork, "timeout", nil),
	}}

	msg := agg.Error()
	first := strings.Index(msg, "open_weather_map")
	second := strings.Index(msg, "open_meteo")
	if first < 0 || second < 0 || first > second {
		t.Errorf("Expected failures in attempt order, got:\n%s", msg)
	}

	if !errors.Is(agg, ErrMissingAPIKey) {
		t.Error("Expected aggregate to expose wrapped provider errors")
	}

	var pe *ProviderError
	if !errors.As(agg, &pe) || pe.Provider != OpenWeatherMap {
		t.Errorf("errors.As returned %v", pe)
	}
}

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{City: "Atlantis", Kind: CityNotFound, Err: ErrCityNotFound}
	if !errors.Is(err, ErrCityNotFound) {
		t.Error("Expected ErrCityNotFound to be wrapped")
	}
	if !strings.Contains(err.Error(), "Atlantis") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
