package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"nimbus/api"
	"nimbus/config"
	"nimbus/internal/fallback"
	"nimbus/internal/geocache"
	"nimbus/internal/live"
	"nimbus/internal/logger"
	"nimbus/internal/resolver"
	"nimbus/weather"
)

func main() {
	var (
		providers providerList
		verbosity countFlag
	)

	configPath := flag.String("config", "", "Path to TOML configuration file (default: user config directory)")
	envFile := flag.String("env-file", ".env", "Optional file with NIMBUS_API_KEY_* variables")
	city := flag.String("city", "", "City name (required if -lat/-lon not provided)")
	lat := flag.Float64("lat", 0, "Latitude (required with -lon if no city)")
	lon := flag.Float64("lon", 0, "Longitude (required with -lat if no city)")
	flag.Var(&providers, "provider", "Provider to use, repeatable or comma separated (tried in order)")
	units := flag.String("units", "", "Units: metric or imperial")
	format := flag.String("format", "", "Output format: text or json")
	lang := flag.String("lang", "", "Language for condition descriptions")
	liveMode := flag.Bool("live", false, "Refresh continuously until interrupted")
	interval := flag.Int("interval", 0, "Seconds between live refreshes (default 300)")
	noCache := flag.Bool("no-cache", false, "Bypass the geocoding cache for this run")
	clearCache := flag.Bool("clear-cache", false, "Clear cached geocoding results and exit")
	generateConfig := flag.Bool("generate-config", false, "Generate a sample configuration file and exit")
	flag.Var(&verbosity, "v", "Increase verbosity (repeat up to three times)")
	verbose := flag.Int("verbose", -1, "Verbosity: 0 = errors, 1 = warnings, 2 = info, 3 = debug")
	timeout := flag.Int("timeout", 0, "Provider request timeout in seconds")
	logFile := flag.String("log-file", "", "Also write logs to this file")
	flag.Parse()

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if *configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			logger.Fatal("%v", err)
		}
		*configPath = path
	}

	if *generateConfig {
		if err := config.GenerateSampleConfig(*configPath); err != nil {
			logger.Fatal("Failed to generate sample config: %v", err)
		}
		fmt.Printf("Sample configuration file created at: %s\n", *configPath)
		fmt.Println("Edit it to choose providers, a location and API keys.")
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		var notFound *config.ConfigNotFoundError
		if !errors.As(err, &notFound) || explicit["config"] {
			logger.Fatal("%v", err)
		}
		cfg = config.Default()
	}

	if err := cfg.LoadEnvKeys(*envFile); err != nil {
		logger.Fatal("%v", err)
	}

	if *logFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.Directory = filepath.Dir(*logFile)
		cfg.Logging.FilenamePattern = filepath.Base(*logFile)
		cfg.Logging.ConsoleOutput = true
	}
	if err := logger.Initialize(cfg.Logging.LoggerConfig()); err != nil {
		logger.Fatal("Failed to initialize logging: %v", err)
	}
	defer logger.Get().Close()

	cachePath := cfg.Cache.FilePath
	if cachePath == "" {
		if cachePath, err = geocache.DefaultPath(); err != nil {
			logger.Warn("Geocoding cache disabled: %v", err)
		}
	}

	if *clearCache {
		if cachePath != "" {
			if err := geocache.New(cachePath).Clear(); err != nil {
				logger.Fatal("Failed to clear cache: %v", err)
			}
		}
		fmt.Println("Cache cleared successfully.")
		return
	}

	overrides := config.Overrides{
		City:      *city,
		Providers: providers,
		Units:     *units,
		Format:    *format,
		Language:  *lang,
		Live:      *liveMode,
		NoCache:   *noCache,
	}
	if explicit["lat"] {
		overrides.Lat = lat
	}
	if explicit["lon"] {
		overrides.Lon = lon
	}
	if explicit["interval"] {
		overrides.Interval = interval
	}
	if explicit["timeout"] {
		overrides.Timeout = timeout
	}
	switch {
	case *verbose >= 0:
		overrides.Verbose = verbose
	case verbosity > 0:
		v := int(verbosity)
		overrides.Verbose = &v
	}

	settings, err := cfg.Settings(overrides)
	if err != nil {
		logger.Fatal("%v", err)
	}
	if !cfg.Logging.Enabled || settings.Verbosity > 0 {
		logger.SetLevel(logger.LevelForVerbosity(settings.Verbosity))
	}

	logger.Debug("Configuration: %s", *configPath)
	logger.Debug("Providers: %v, location: %s, units: %s", settings.Providers, settings.Location, settings.Units)

	var cache resolver.Cache
	if cachePath != "" {
		cache = geocache.New(cachePath)
	}
	orchestrator := fallback.New(api.NewClient(), cache)

	req := fallback.Request{
		Location:  settings.Location,
		Providers: settings.Providers,
		Units:     settings.Units,
		Keys:      settings.Keys,
		Timeout:   settings.Timeout,
		Verbosity: settings.Verbosity,
		UseCache:  settings.UseCache,
		NoCache:   settings.NoCache,
		Language:  settings.Language,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newRenderer(os.Stdout, os.Stderr, settings.Format, settings.Live)

	if !settings.Live {
		report, err := orchestrator.Fetch(ctx, req)
		if err != nil {
			out.Failure(err)
			logger.Get().Close()
			os.Exit(1)
		}
		if err := out.Report(report); err != nil {
			logger.Fatal("Failed to print report: %v", err)
		}
		return
	}

	scheduler := live.New(settings.Interval)
	err = scheduler.Run(ctx,
		func(ctx context.Context) (*weather.Report, error) {
			return orchestrator.Fetch(ctx, req)
		},
		func(report *weather.Report, err error) {
			if err != nil {
				out.Failure(err)
				return
			}
			if err := out.Report(report); err != nil {
				logger.Error("Failed to print report: %v", err)
			}
		})
	if cerr := out.Close(); cerr != nil {
		logger.Warn("Failed to restore cursor: %v", cerr)
	}
	if err != nil {
		logger.Fatal("%v", err)
	}
}

// providerList collects -provider values, accepting repeats and comma lists
type providerList []string

func (p *providerList) String() string {
	return strings.Join(*p, ",")
}

func (p *providerList) Set(value string) error {
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := weather.ParseProviderID(name); err != nil {
			return err
		}
		*p = append(*p, name)
	}
	return nil
}

// countFlag is a boolean flag that counts how often it was given
type countFlag int

func (c *countFlag) String() string {
	return fmt.Sprint(int(*c))
}

func (c *countFlag) Set(string) error {
	*c++
	return nil
}

func (c *countFlag) IsBoolFlag() bool {
	return true
}
