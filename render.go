package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"nimbus/weather"
)

const (
	// clearScreen moves the cursor home and hides it between live refreshes
	clearScreen = "\x1b[2J\x1b[1;1H\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

// renderer prints reports and failures for one invocation
type renderer struct {
	out    io.Writer
	errOut io.Writer
	format string
	live   bool
}

func newRenderer(out, errOut io.Writer, format string, live bool) *renderer {
	return &renderer{out: out, errOut: errOut, format: format, live: live}
}

// Report writes a successful report in the configured format
func (r *renderer) Report(report *weather.Report) error {
	if r.format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(r.out, string(data))
		return err
	}

	if r.live {
		if _, err := io.WriteString(r.out, clearScreen); err != nil {
			return err
		}
	}
	_, err := io.WriteString(r.out, formatText(report))
	return err
}

// Close restores the cursor hidden by live text output
func (r *renderer) Close() error {
	if !r.live || r.format == "json" {
		return nil
	}
	_, err := io.WriteString(r.out, showCursor)
	return err
}

// Failure writes an error, listing each provider when every one of them failed
func (r *renderer) Failure(err error) {
	var agg *weather.AggregateFetchError
	if !errors.As(err, &agg) {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		return
	}

	fmt.Fprintln(r.errOut, "Error: no provider returned weather data")
	for _, f := range agg.Failures {
		line := fmt.Sprintf("  %s: %s", f.Provider.Info().Name, f.Kind)
		if f.Detail != "" {
			line += ": " + f.Detail
		}
		if f.Err != nil {
			line += fmt.Sprintf(" (%v)", f.Err)
		}
		fmt.Fprintln(r.errOut, line)
	}
}

func formatText(report *weather.Report) string {
	u := report.Units
	var b strings.Builder

	line := func(label, value string) {
		fmt.Fprintf(&b, "%-12s %s\n", label+":", value)
	}

	if report.LocationName != "" {
		line("Location", report.LocationName)
	}
	line("Condition", report.Description)
	line("Temperature", fmt.Sprintf("%.1f%s (feels like %.1f%s)",
		report.Temperature, u.Suffix("temperature"), report.FeelsLike, u.Suffix("temperature")))
	line("Wind", fmt.Sprintf("%.1f %s %s",
		report.WindSpeed, u.Suffix("wind"), weather.DegreesToCompass(report.WindDirection)))
	line("Humidity", fmt.Sprintf("%.0f%% | %.1f %s",
		report.Humidity, report.Precipitation, u.Suffix("precipitation")))
	line("Pressure", fmt.Sprintf("%.1f %s", report.Pressure, u.Suffix("pressure")))
	if report.DewPoint != nil {
		line("Dew point", fmt.Sprintf("%.1f%s", *report.DewPoint, u.Suffix("temperature")))
	}
	if report.UVIndex != nil {
		line("UV index", fmt.Sprintf("%.1f", *report.UVIndex))
	}
	line("Source", report.Provider.Info().Name)

	return b.String()
}
