package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"nimbus/internal/logger"
	"nimbus/weather"
)

const (
	appDir = "nimbus"

	// DefaultLiveInterval is used when live_mode_interval is zero
	DefaultLiveInterval = 300
	// DefaultConnectTimeout is used when connect_timeout is zero
	DefaultConnectTimeout = 10

	envKeyPrefix = "NIMBUS_API_KEY_"
)

// APIKeys holds one key per provider slot
type APIKeys struct {
	OpenWeatherMap     string `toml:"open_weather_map"`
	WorldWeatherOnline string `toml:"world_weather_online"`
	WeatherAPI         string `toml:"weather_api"`
	WeatherBit         string `toml:"weather_bit"`
	TomorrowIO         string `toml:"tomorrow_io"`
	OpenUV             string `toml:"open_uv"`
}

// slot returns a pointer to the key stored under the given [api_keys] name
func (k *APIKeys) slot(name string) *string {
	switch name {
	case "open_weather_map":
		return &k.OpenWeatherMap
	case "world_weather_online":
		return &k.WorldWeatherOnline
	case "weather_api":
		return &k.WeatherAPI
	case "weather_bit":
		return &k.WeatherBit
	case "tomorrow_io":
		return &k.TomorrowIO
	case "open_uv":
		return &k.OpenUV
	default:
		return nil
	}
}

// Format contains output settings
type Format struct {
	OutputFormat string `toml:"output_format" validate:"omitempty,oneof=text json"`
	Units        string `toml:"units" validate:"omitempty,oneof=metric imperial"`
	// Passed to providers that localize descriptions
	Language     string `toml:"language" validate:"omitempty,min=2,max=5"`
}

// Logging contains logging configuration with rotation
type Logging struct {
	Enabled         bool   `toml:"enabled"`          // Enable file logging
	Directory       string `toml:"directory"`        // Log directory (relative or absolute)
	FilenamePattern string `toml:"filename_pattern"` // Log filename with date patterns
	ConsoleOutput   bool   `toml:"console_output"`   // Also output to console

	Level     string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	MaxFiles  int    `toml:"max_files" validate:"gte=0,lte=365"`
	MaxSizeMB int    `toml:"max_size_mb" validate:"gte=0,lte=1000"`
}

// LoggerConfig converts the section into the logger's own configuration
func (l Logging) LoggerConfig() logger.Config {
	return logger.Config{
		Enabled:         l.Enabled,
		Directory:       l.Directory,
		FilenamePattern: l.FilenamePattern,
		Level:           l.Level,
		MaxFiles:        l.MaxFiles,
		MaxSizeMB:       l.MaxSizeMB,
		ConsoleOutput:   l.ConsoleOutput,
	}
}

// Cache contains geocoding cache configuration
type Cache struct {
	FilePath string `toml:"file_path"` // Empty selects the per-user cache directory
}

// Config represents the complete application configuration
type Config struct {
	// Providers are tried in order until one succeeds
	Providers []string `toml:"providers" validate:"required,min=1,dive,required"`

	City *string  `toml:"city,omitempty"`
	Lat  *float64 `toml:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon  *float64 `toml:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`

	LiveMode          bool `toml:"live_mode"`
	// Seconds between live updates
	LiveModeInterval  int  `toml:"live_mode_interval" validate:"gte=0,lte=86400"`
	UseGeocodingCache bool `toml:"use_geocoding_cache"`
	// 0 = errors, 1 = warnings, 2 = info, 3 = debug
	Verbose           int  `toml:"verbose" validate:"gte=0,lte=3"`
	// Seconds
	ConnectTimeout    int  `toml:"connect_timeout" validate:"gte=0,lte=300"`

	APIKeys APIKeys `toml:"api_keys"`
	Format  Format  `toml:"format"`
	Logging Logging `toml:"logging"`
	Cache   Cache   `toml:"cache"`
}

// DefaultPath returns the configuration file location under the per-user config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, appDir, "config.toml"), nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// LoadConfig reads and parses a TOML configuration file
func LoadConfig(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				Path: cleanPath,
			}
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML configuration: %w", err)
	}

	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults sets default values for optional configuration fields
func (c *Config) ApplyDefaults() {
	if len(c.Providers) == 0 {
		c.Providers = []string{string(weather.OpenMeteo)}
	}
	if c.LiveModeInterval == 0 {
		c.LiveModeInterval = DefaultLiveInterval
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}

	if strings.TrimSpace(c.Format.OutputFormat) == "" {
		c.Format.OutputFormat = "text"
	}
	if strings.TrimSpace(c.Format.Units) == "" {
		c.Format.Units = string(weather.Metric)
	}
	if strings.TrimSpace(c.Format.Language) == "" {
		c.Format.Language = "en"
	}

	if strings.TrimSpace(c.Logging.Directory) == "" {
		c.Logging.Directory = "logs"
	}
	if strings.TrimSpace(c.Logging.FilenamePattern) == "" {
		c.Logging.FilenamePattern = "nimbus-YYYYMMDD.log"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	// Log retention is always bounded; zero selects the defaults
	if c.Logging.MaxFiles <= 0 {
		c.Logging.MaxFiles = 7
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
}

// LoadEnvKeys loads envFile when it exists and then copies any
// NIMBUS_API_KEY_<SLOT> variables over the configured keys
func (c *Config) LoadEnvKeys(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	for _, name := range weather.KnownProviders() {
		slot := weather.ProviderID(name).Info().KeySlot
		if slot == "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(envKeyPrefix + strings.ToUpper(slot))); v != "" {
			*c.APIKeys.slot(slot) = v
			logger.Debug("API key for %s taken from environment", name)
		}
	}
	return nil
}

// KeyFor returns the configured API key for a provider, or "" when it has none
func (c *Config) KeyFor(id weather.ProviderID) string {
	p := c.APIKeys.slot(id.Info().KeySlot)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// ConfigNotFoundError represents a missing configuration file
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s\n\nTo create a sample configuration file, run:\n  %s -generate-config", e.Path, filepath.Base(os.Args[0]))
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for correctness and completeness
func (c *Config) Validate() error {
	var errs []ValidationError

	errs = append(errs, c.validateFields()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateLocation()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateCache()...)

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// validateFields runs the struct tag rules
func (c *Config) validateFields() []ValidationError {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "config", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name, leaving the TOML key path
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at least %s entries are required", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s, got '%v'", strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// validateProviders checks every entry names a primary provider
func (c *Config) validateProviders() []ValidationError {
	var errs []ValidationError

	for i, name := range c.Providers {
		if strings.TrimSpace(name) == "" {
			continue
		}
		field := fmt.Sprintf("providers[%d]", i)
		id, err := weather.ParseProviderID(name)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
			continue
		}
		if id.Info().Auxiliary {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s only adds UV data and cannot be used as a weather provider", id),
			})
		}
	}

	return errs
}

// validateLocation checks that latitude and longitude come as a pair
func (c *Config) validateLocation() []ValidationError {
	if (c.Lat == nil) != (c.Lon == nil) {
		return []ValidationError{{
			Field:   "lat/lon",
			Message: "latitude and longitude must be set together",
		}}
	}
	return nil
}

// validateLogging checks file logging settings
func (c *Config) validateLogging() []ValidationError {
	if !c.Logging.Enabled {
		return nil
	}

	var errs []ValidationError
	if strings.TrimSpace(c.Logging.Directory) == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.directory",
			Message: "directory is required when logging is enabled",
		})
	}
	if err := logger.ValidateFilenamePattern(c.Logging.FilenamePattern); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.filename_pattern",
			Message: err.Error(),
		})
	}
	return errs
}

// validateCache checks an explicit cache path does not point at a directory
func (c *Config) validateCache() []ValidationError {
	path := strings.TrimSpace(c.Cache.FilePath)
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return []ValidationError{{
			Field:   "cache.file_path",
			Message: fmt.Sprintf("%s is a directory", path),
		}}
	}
	return nil
}

// Overrides carries command-line values that take precedence over the file.
// Nil pointers and empty values leave the file setting in place.
type Overrides struct {
	City      string
	Lat       *float64
	Lon       *float64
	Providers []string
	Units     string
	Format    string
	Language  string
	Live      bool
	Interval  *int
	NoCache   bool
	Verbose   *int
	Timeout   *int
}

// Settings is the resolved configuration consumed by the weather core
type Settings struct {
	Location  weather.Location
	Providers []weather.ProviderID
	Units     weather.Units
	Keys      map[weather.ProviderID]string
	Timeout   time.Duration
	UseCache  bool
	NoCache   bool
	Verbosity int
	Live      bool
	Interval  time.Duration
	Format    string
	Language  string
}

// Settings merges overrides on top of the file configuration, validates the
// result and resolves it into typed values
func (c *Config) Settings(o Overrides) (Settings, error) {
	merged := *c
	merged.apply(o)
	merged.ApplyDefaults()

	if err := merged.Validate(); err != nil {
		return Settings{}, err
	}

	loc, err := merged.location()
	if err != nil {
		return Settings{}, err
	}

	providers := make([]weather.ProviderID, 0, len(merged.Providers))
	for _, name := range merged.Providers {
		id, _ := weather.ParseProviderID(name)
		providers = append(providers, id)
	}

	units, err := weather.ParseUnits(merged.Format.Units)
	if err != nil {
		return Settings{}, err
	}

	keys := make(map[weather.ProviderID]string)
	for _, name := range weather.KnownProviders() {
		id := weather.ProviderID(name)
		if key := merged.KeyFor(id); key != "" {
			keys[id] = key
		}
	}
	for _, id := range providers {
		if id.Info().RequiresKey && keys[id] == "" {
			logger.Warn("No API key configured for %s; it will be skipped", id)
		}
	}

	return Settings{
		Location:  loc,
		Providers: providers,
		Units:     units,
		Keys:      keys,
		Timeout:   time.Duration(merged.ConnectTimeout) * time.Second,
		UseCache:  merged.UseGeocodingCache,
		NoCache:   o.NoCache,
		Verbosity: merged.Verbose,
		Live:      merged.LiveMode,
		Interval:  time.Duration(merged.LiveModeInterval) * time.Second,
		Format:    merged.Format.OutputFormat,
		Language:  merged.Format.Language,
	}, nil
}

func (c *Config) apply(o Overrides) {
	if city := strings.TrimSpace(o.City); city != "" {
		c.City = &city
	}
	if o.Lat != nil {
		c.Lat = o.Lat
	}
	if o.Lon != nil {
		c.Lon = o.Lon
	}
	if len(o.Providers) > 0 {
		c.Providers = o.Providers
	}
	if o.Units != "" {
		c.Format.Units = strings.ToLower(strings.TrimSpace(o.Units))
	}
	if o.Format != "" {
		c.Format.OutputFormat = strings.ToLower(strings.TrimSpace(o.Format))
	}
	if o.Language != "" {
		c.Format.Language = o.Language
	}
	if o.Live {
		c.LiveMode = true
	}
	if o.Interval != nil {
		c.LiveModeInterval = *o.Interval
	}
	if o.NoCache {
		c.UseGeocodingCache = false
	}
	if o.Verbose != nil {
		c.Verbose = *o.Verbose
	}
	if o.Timeout != nil {
		c.ConnectTimeout = *o.Timeout
	}
}

// location prefers a city name over coordinates
func (c *Config) location() (weather.Location, error) {
	if c.City != nil && strings.TrimSpace(*c.City) != "" {
		return weather.InCity(strings.TrimSpace(*c.City)), nil
	}
	if c.Lat != nil && c.Lon != nil {
		return weather.AtCoordinates(*c.Lat, *c.Lon), nil
	}
	return weather.Location{}, errors.New("no location provided: set city or lat/lon in the config file, or pass -city or -lat/-lon")
}

// GenerateSampleConfig creates a sample configuration file at the specified path
func GenerateSampleConfig(configPath string) error {
	sampleConfig := `# Nimbus Configuration File
# Current weather from several providers with automatic fallback

# Providers are tried in order until one succeeds:
# open_meteo, yr, open_weather_map, world_weather_online, weather_api, weather_bit, tomorrow_io
providers = ["open_meteo", "yr"]

# Location: a city name, or lat/lon (the city wins when both are set)
city = "London"
# lat = 51.5074
# lon = -0.1278

live_mode = false                          # Refresh continuously
live_mode_interval = 300                   # Seconds between refreshes (0 = 300)
use_geocoding_cache = true                 # Remember city coordinates between runs
verbose = 0                                # 0 = errors, 1 = warnings, 2 = info, 3 = debug
connect_timeout = 10                       # Seconds per provider request

[api_keys]
# Leave empty for providers you do not use. Each key may also come from the
# environment as NIMBUS_API_KEY_<NAME>, e.g. NIMBUS_API_KEY_OPEN_WEATHER_MAP
open_weather_map = ""                      # https://openweathermap.org/api
world_weather_online = ""                  # https://www.worldweatheronline.com/weather-api/
weather_api = ""                           # https://www.weatherapi.com/
weather_bit = ""                           # https://www.weatherbit.io/
tomorrow_io = ""                           # https://www.tomorrow.io/weather-api/
open_uv = ""                               # https://www.openuv.io/ (adds a UV index when missing)

[format]
output_format = "text"                     # text or json
units = "metric"                           # metric or imperial
language = "en"                            # Language for condition descriptions

[logging]
enabled = false                            # Enable file logging
directory = "logs"                         # Log directory (relative to working dir or absolute path)
filename_pattern = "nimbus-YYYYMMDD.log"   # YYYY=year, MM=month, DD=day, HH=hour
level = "info"                             # Log level: debug, info, warn, error
max_files = 7                              # Keep 7 log files (0 = default of 7)
max_size_mb = 10                           # Rotate when file exceeds 10MB (0 = default of 10)
console_output = false                     # Also output to console

[cache]
file_path = ""                             # Geocoding cache file (empty = user cache directory)
`

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	return nil
}
