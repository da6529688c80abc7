package weather

import (
	"math"
	"testing"
)

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		from     Units
		to       Units
		expected float64
		delta    float64
	}{
		{"Celsius to Fahrenheit", 0, Metric, Imperial, 32, 0.001},
		{"Fahrenheit to Celsius", 32, Imperial, Metric, 0, 0.001},
		{"Body temperature", 37, Metric, Imperial, 98.6, 0.001},
		{"Same units", 21.5, Metric, Metric, 21.5, 0},
		{"Negative crossover", -40, Imperial, Metric, -40, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertTemperature(tt.temp, tt.from, tt.to)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("ConvertTemperature(%.2f, %s, %s) = %.4f, expected %.4f", tt.temp, tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestConvertSpeedPressurePrecipitation(t *testing.T) {
	if got := ConvertSpeed(10, Metric, Imperial); math.Abs(got-22.3694) > 0.001 {
		t.Errorf("10 m/s = %.4f mph, expected 22.3694", got)
	}
	if got := ConvertPressure(1013.25, Metric, Imperial); math.Abs(got-29.921) > 0.001 {
		t.Errorf("1013.25 hPa = %.4f inHg, expected 29.921", got)
	}
	if got := ConvertPrecipitation(25.4, Metric, Imperial); math.Abs(got-1) > 1e-9 {
		t.Errorf("25.4 mm = %.4f in, expected 1", got)
	}
	if got := KilometersPerHourToMetersPerSecond(36); math.Abs(got-10) > 1e-9 {
		t.Errorf("36 km/h = %.4f m/s, expected 10", got)
	}
}

func TestDewPoint(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		humidity float64
		units    Units
		expected float64
	}{
		{"20C at 50 percent", 20, 50, Metric, 9.3},
		{"saturated air", 15, 100, Metric, 15.0},
		{"68F at 50 percent", 68, 50, Imperial, 48.7},
		{"freezing", 0, 80, Metric, -3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dp, ok := DewPoint(tt.temp, tt.humidity, tt.units)
			if !ok {
				t.Fatalf("DewPoint(%.1f, %.1f) reported not ok", tt.temp, tt.humidity)
			}
			if math.Abs(dp-tt.expected) > 0.05 {
				t.Errorf("DewPoint(%.1f, %.1f, %s) = %.2f, expected %.1f", tt.temp, tt.humidity, tt.units, dp, tt.expected)
			}
		})
	}

	if _, ok := DewPoint(20, 0, Metric); ok {
		t.Error("Expected zero humidity to be rejected")
	}
}

func TestApparentTemperature(t *testing.T) {
	got := ApparentTemperature(20, 0, 50)
	if math.Abs(got-19.8) > 0.05 {
		t.Errorf("ApparentTemperature(20, 0, 50) = %.2f, expected 19.8", got)
	}
	windy := ApparentTemperature(20, 10, 50)
	if windy >= got {
		t.Errorf("Expected wind to lower apparent temperature, got %.1f >= %.1f", windy, got)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	tests := map[float64]int{
		0:      0,
		359.4:  359,
		359.6:  0,
		360:    0,
		-90:    270,
		725:    5,
		182.49: 182,
	}
	for in, expected := range tests {
		if got := NormalizeDegrees(in); got != expected {
			t.Errorf("NormalizeDegrees(%.2f) = %d, expected %d", in, got, expected)
		}
	}
}

func TestCompassConversions(t *testing.T) {
	tests := []struct {
		point   string
		degrees int
	}{
		{"N", 0},
		{"NNE", 23},
		{"E", 90},
		{"SSW", 203},
		{"wsw", 248},
		{"NNW", 338},
	}
	for _, tt := range tests {
		got, ok := CompassToDegrees(tt.point)
		if !ok || got != tt.degrees {
			t.Errorf("CompassToDegrees(%q) = %d, %v; expected %d", tt.point, got, ok, tt.degrees)
		}
	}

	if _, ok := CompassToDegrees("XYZ"); ok {
		t.Error("Expected unknown compass point to be rejected")
	}
	if got := DegreesToCompass(225); got != "SW" {
		t.Errorf("DegreesToCompass(225) = %s, expected SW", got)
	}
}

func TestReportConvertRoundTrip(t *testing.T) {
	dp := 9.3
	original := &Report{
		Temperature:   20,
		FeelsLike:     18.5,
		WindSpeed:     5.5,
		WindDirection: 270,
		Humidity:      50,
		Precipitation: 1.2,
		Pressure:      1013,
		DewPoint:      &dp,
		Units:         Metric,
		Provider:      OpenMeteo,
	}

	imperial := original.ConvertTo(Imperial)
	if imperial.Units != Imperial {
		t.Fatalf("Expected imperial units, got %s", imperial.Units)
	}
	if math.Abs(imperial.Temperature-68) > 0.001 {
		t.Errorf("Expected 68F, got %.3f", imperial.Temperature)
	}
	if original.Units != Metric || original.Temperature != 20 {
		t.Error("ConvertTo must not modify the receiver")
	}

	back := imperial.ConvertTo(Metric)
	const delta = 1e-9
	checks := []struct {
		name      string
		got, want float64
	}{
		{"temperature", back.Temperature, original.Temperature},
		{"feels_like", back.FeelsLike, original.FeelsLike},
		{"wind_speed", back.WindSpeed, original.WindSpeed},
		{"precipitation", back.Precipitation, original.Precipitation},
		{"pressure", back.Pressure, original.Pressure},
		{"dew_point", *back.DewPoint, *original.DewPoint},
		{"humidity", back.Humidity, original.Humidity},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > delta {
			t.Errorf("%s: round trip gave %.12f, expected %.12f", c.name, c.got, c.want)
		}
	}
	if back.WindDirection != original.WindDirection {
		t.Errorf("wind direction changed: %d", back.WindDirection)
	}
}

func TestReportEnrich(t *testing.T) {
	r := &Report{Temperature: 20, Humidity: 50, WindDirection: 360, Units: Metric}
	r.Enrich()
	if r.DewPoint == nil {
		t.Fatal("Expected dew point to be computed")
	}
	if math.Abs(*r.DewPoint-9.3) > 0.05 {
		t.Errorf("Expected dew point 9.3, got %.2f", *r.DewPoint)
	}
	if r.WindDirection != 0 {
		t.Errorf("Expected wind direction normalized to 0, got %d", r.WindDirection)
	}

	supplied := 7.0
	r = &Report{Temperature: 20, Humidity: 50, DewPoint: &supplied, Units: Metric}
	r.Enrich()
	if *r.DewPoint != 7.0 {
		t.Errorf("Expected supplied dew point to be kept, got %.1f", *r.DewPoint)
	}
}
