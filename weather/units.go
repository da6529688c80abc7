package weather

import (
	"math"
	"strings"
)

const (
	mpsPerMPH  = 0.44704
	mmPerInch  = 25.4
	hPaPerInHg = 33.8639

	// Magnus coefficients (Alduchov and Eskridge)
	magnusB = 17.625
	magnusC = 243.04
)

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func MetersPerSecondToMPH(v float64) float64 { return v / mpsPerMPH }
func MPHToMetersPerSecond(v float64) float64 { return v * mpsPerMPH }

// KilometersPerHourToMetersPerSecond is used by providers that only report km/h
func KilometersPerHourToMetersPerSecond(v float64) float64 { return v / 3.6 }

func MillimetersToInches(v float64) float64 { return v / mmPerInch }
func InchesToMillimeters(v float64) float64 { return v * mmPerInch }

func HectopascalsToInHg(v float64) float64 { return v / hPaPerInHg }
func InHgToHectopascals(v float64) float64 { return v * hPaPerInHg }

// ConvertTemperature converts a temperature between unit systems
func ConvertTemperature(temp float64, from, to Units) float64 {
	if from == to {
		return temp
	}
	if to == Imperial {
		return CelsiusToFahrenheit(temp)
	}
	return FahrenheitToCelsius(temp)
}

// ConvertSpeed converts wind speed between m/s and mph
func ConvertSpeed(speed float64, from, to Units) float64 {
	if from == to {
		return speed
	}
	if to == Imperial {
		return MetersPerSecondToMPH(speed)
	}
	return MPHToMetersPerSecond(speed)
}

// ConvertPrecipitation converts precipitation between mm and inches
func ConvertPrecipitation(amount float64, from, to Units) float64 {
	if from == to {
		return amount
	}
	if to == Imperial {
		return MillimetersToInches(amount)
	}
	return InchesToMillimeters(amount)
}

// ConvertPressure converts pressure between hPa and inHg
func ConvertPressure(pressure float64, from, to Units) float64 {
	if from == to {
		return pressure
	}
	if to == Imperial {
		return HectopascalsToInHg(pressure)
	}
	return InHgToHectopascals(pressure)
}

// DewPoint computes the dew point with the Magnus formula, rounded to one
// decimal. temp is in the given units. ok is false when humidity is outside (0, 100].
func DewPoint(temp, humidity float64, units Units) (dp float64, ok bool) {
	if humidity <= 0 || humidity > 100 {
		return 0, false
	}
	t := ConvertTemperature(temp, units, Metric)
	gamma := (magnusB*t)/(magnusC+t) + math.Log(humidity/100)
	dp = magnusC * gamma / (magnusB - gamma)
	return round1(ConvertTemperature(dp, Metric, units)), true
}

// ApparentTemperature is the Australian apparent temperature in °C for a
// temperature in °C, wind in m/s and relative humidity in percent.
func ApparentTemperature(temp, windSpeed, humidity float64) float64 {
	e := humidity / 100 * 6.105 * math.Exp(17.27*temp/(237.7+temp))
	return round1(temp + 0.33*e - 0.70*windSpeed - 4.00)
}

// NormalizeDegrees maps any angle onto 0..359
func NormalizeDegrees(deg float64) int {
	d := int(math.Round(deg)) % 360
	if d < 0 {
		d += 360
	}
	return d
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// CompassToDegrees converts a 16-point compass direction such as "WSW" to degrees
func CompassToDegrees(point string) (int, bool) {
	p := strings.ToUpper(strings.TrimSpace(point))
	for i, name := range compassPoints {
		if name == p {
			return NormalizeDegrees(float64(i) * 22.5), true
		}
	}
	return 0, false
}

// DegreesToCompass converts wind direction degrees to a 16-point compass direction
func DegreesToCompass(deg int) string {
	index := int((float64(NormalizeDegrees(float64(deg)))+11.25)/22.5) % 16
	return compassPoints[index]
}

// ConvertTo returns a copy of the report with every numeric field in the target units
func (r *Report) ConvertTo(target Units) *Report {
	if r == nil {
		return nil
	}
	out := *r
	if r.Units == target {
		return &out
	}
	from := r.Units
	out.Temperature = ConvertTemperature(r.Temperature, from, target)
	out.FeelsLike = ConvertTemperature(r.FeelsLike, from, target)
	out.WindSpeed = ConvertSpeed(r.WindSpeed, from, target)
	out.Precipitation = ConvertPrecipitation(r.Precipitation, from, target)
	out.Pressure = ConvertPressure(r.Pressure, from, target)
	if r.DewPoint != nil {
		dp := ConvertTemperature(*r.DewPoint, from, target)
		out.DewPoint = &dp
	}
	out.Units = target
	return &out
}

// Enrich fills in derived metrics the provider did not supply
func (r *Report) Enrich() {
	if r.DewPoint == nil {
		if dp, ok := DewPoint(r.Temperature, r.Humidity, r.Units); ok {
			r.DewPoint = &dp
		}
	}
	r.WindDirection = NormalizeDegrees(float64(r.WindDirection))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
