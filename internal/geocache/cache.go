package geocache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"

	"nimbus/internal/errorutil"
	"nimbus/internal/logger"
	"nimbus/weather"
)

const (
	schemaVersion = 1
	fileName      = "geocoding.toml"
	appDir        = "nimbus"
)

// Entry is one cached geocoding result
type Entry struct {
	Name     string  `toml:"name"`
	Lat      float64 `toml:"lat"`
	Lon      float64 `toml:"lon"`
	StoredAt int64   `toml:"stored_at"`
}

type table struct {
	SchemaVersion int              `toml:"schema_version"`
	Entries       map[string]Entry `toml:"entries"`
}

// Cache maps normalized city names to coordinates in a single TOML file.
// Every mutation rewrites the whole table under an exclusive file lock.
type Cache struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// New creates a cache backed by the file at path
func New(path string) *Cache {
	return &Cache{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// DefaultPath returns the cache file location under the per-user cache directory
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Path returns the backing file path
func (c *Cache) Path() string {
	return c.path
}

// Normalize produces the cache key for a city name: case folded, trimmed,
// and with inner whitespace collapsed to single spaces
func Normalize(city string) string {
	return strings.Join(strings.Fields(cases.Fold().String(city)), " ")
}

// Get returns the cached place for city. Any read problem is a miss.
func (c *Cache) Get(city string) (weather.Place, bool) {
	key := Normalize(city)
	if key == "" {
		return weather.Place{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(filepath.Dir(c.path)); err != nil {
		return weather.Place{}, false
	}
	if err := c.lock.RLock(); err != nil {
		logger.Debug("Geocoding cache lock failed: %v", err)
		return weather.Place{}, false
	}
	defer c.lock.Unlock()

	entry, ok := c.load().Entries[key]
	if !ok {
		logger.Debug("Geocoding cache miss: %s", key)
		return weather.Place{}, false
	}

	logger.Debug("Geocoding cache hit: %s -> %.4f,%.4f", key, entry.Lat, entry.Lon)
	return weather.Place{
		Name:        entry.Name,
		Coordinates: weather.Coordinates{Lat: entry.Lat, Lon: entry.Lon},
	}, true
}

// Put stores the place under the normalized city key, replacing any previous entry
func (c *Cache) Put(city string, place weather.Place) error {
	key := Normalize(city)
	if key == "" {
		return fmt.Errorf("cannot cache empty city name")
	}
	if !place.Coordinates.Valid() {
		return fmt.Errorf("refusing to cache invalid coordinates %s", place.Coordinates)
	}

	complete := logger.LogOperationStart("geocache_put", map[string]any{
		"file_path": c.path,
		"key":       key,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		err = errorutil.NewFileError("mkdir", filepath.Dir(c.path), err)
		complete(err)
		return err
	}
	if err := c.lock.Lock(); err != nil {
		err = errorutil.NewFileError("lock", c.lock.Path(), err)
		complete(err)
		return err
	}
	defer c.lock.Unlock()

	t := c.load()
	if t.SchemaVersion < schemaVersion {
		t.SchemaVersion = schemaVersion
	}
	t.Entries[key] = Entry{
		Name:     place.Name,
		Lat:      place.Lat,
		Lon:      place.Lon,
		StoredAt: time.Now().Unix(),
	}

	data, err := toml.Marshal(t)
	if err != nil {
		err = fmt.Errorf("failed to marshal geocoding cache: %w", err)
		complete(err)
		return err
	}

	if err := errorutil.SafeFileWrite(logger.Get().Logger, c.path, data, 0644); err != nil {
		complete(err)
		return err
	}

	complete(nil)
	return nil
}

// Clear deletes every cached entry. It succeeds when no cache file exists.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(filepath.Dir(c.path)); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := c.lock.Lock(); err != nil {
		return errorutil.LogAndWrap(logger.Get().Logger, "clear geocoding cache",
			errorutil.NewFileError("lock", c.lock.Path(), err), errorutil.FileContext(c.path)...)
	}
	defer c.lock.Unlock()

	if err := errorutil.RemoveIfExists(logger.Get().Logger, c.path); err != nil {
		return err
	}
	logger.Debug("Geocoding cache cleared: %s", c.path)
	return nil
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.load().Entries)
}

// load reads the whole table. Missing, unreadable or corrupt files yield an empty table.
func (c *Cache) load() table {
	empty := table{SchemaVersion: schemaVersion, Entries: map[string]Entry{}}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Geocoding cache unreadable, treating as empty: %v", err)
		}
		return empty
	}

	var t table
	if err := toml.Unmarshal(data, &t); err != nil {
		logger.Debug("Geocoding cache corrupt, treating as empty: %v", err)
		return empty
	}
	if t.SchemaVersion > schemaVersion {
		logger.Debug("Geocoding cache schema %d is newer than %d, reading known fields only", t.SchemaVersion, schemaVersion)
	}

	for key, e := range t.Entries {
		if !(weather.Coordinates{Lat: e.Lat, Lon: e.Lon}).Valid() {
			delete(t.Entries, key)
		}
	}
	if t.Entries == nil {
		t.Entries = map[string]Entry{}
	}
	return t
}
