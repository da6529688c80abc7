package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/internal/logger"
	"nimbus/weather"
)

const (
	// DefaultTimeout bounds a single provider request when none is configured
	DefaultTimeout = 10 * time.Second

	// MET Norway rejects requests without an identifying User-Agent
	userAgent = "nimbus/1.0 github.com/nimbus-weather/nimbus"
)

// Request carries everything a provider needs for one fetch
type Request struct {
	Location weather.Location
	Units    weather.Units
	APIKey   string
	Timeout  time.Duration
	Language string
}

func (r Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func (r Request) language() string {
	if r.Language == "" {
		return "en"
	}
	return r.Language
}

func (r Request) units() weather.Units {
	if r.Units == "" {
		return weather.Metric
	}
	return r.Units
}

// Provider fetches current conditions from one upstream weather service
type Provider interface {
	ID() weather.ProviderID
	SupportsCityInput() bool
	RequiresAPIKey() bool
	Fetch(ctx context.Context, req Request) (*weather.Report, error)
}

// Geocoder turns a city name into coordinates
type Geocoder interface {
	Geocode(ctx context.Context, city string) (weather.Place, error)
}

// GeocoderFunc adapts a function to the Geocoder interface
type GeocoderFunc func(ctx context.Context, city string) (weather.Place, error)

func (f GeocoderFunc) Geocode(ctx context.Context, city string) (weather.Place, error) {
	return f(ctx, city)
}

// NewClient creates the HTTP client shared by every provider. Retries are
// disabled: fallback to the next provider is the only repetition. The client
// itself has no timeout; each call is bounded by its request context.
func NewClient() *resty.Client {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		headers := make(map[string]string)
		for key, values := range req.Header {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}
		for key, values := range c.Header {
			if _, ok := headers[key]; !ok && len(values) > 0 {
				headers[key] = values[0]
			}
		}
		logger.LogAPIRequest(req.Method, req.URL, headers)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.LogAPIResponse(resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time().String(), len(resp.Body()))
		return nil
	})

	return client
}

// call describes one GET against a provider endpoint
type call struct {
	provider  weather.ProviderID
	operation string
	url       string
	query     map[string]string
	headers   map[string]string
	timeout   time.Duration

	// apiMessage extracts the provider's own error text from a response body
	apiMessage func(body []byte) string
	// refine may reclassify a status failure from the provider's error payload
	refine func(body []byte, perr *weather.ProviderError)
}

// do performs the request and returns the body of a successful response.
// Failures are returned as *weather.ProviderError.
func (c call) do(ctx context.Context, client *resty.Client) ([]byte, error) {
	complete := logger.LogOperationStart(string(c.provider)+"_"+c.operation, map[string]any{
		"url": c.url,
	})

	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := limiterFor(c.provider).Wait(ctx); err != nil {
		perr := transportError(c.provider, c.operation, c.url, err)
		complete(perr)
		return nil, perr
	}

	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(c.query).
		SetHeaders(c.headers).
		Get(c.url)
	if err != nil {
		perr := transportError(c.provider, c.operation, c.url, err)
		complete(perr)
		return nil, perr
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		msg := ""
		if c.apiMessage != nil {
			msg = c.apiMessage(body)
		}
		perr := statusError(c.provider, c.operation, c.url, resp.StatusCode(), msg)
		if c.refine != nil {
			c.refine(body, perr)
		}
		complete(perr)
		return nil, perr
	}

	complete(nil)
	return body, nil
}

// decode parses a JSON body, reporting failures as malformed responses
func decode(id weather.ProviderID, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return weather.NewProviderError(id, weather.KindMalformed, "invalid JSON", err)
	}
	return nil
}

// RequireKey fails before any network activity when a key is missing
func RequireKey(id weather.ProviderID, key string) error {
	if key == "" {
		return weather.NewProviderError(id, weather.KindAuth,
			fmt.Sprintf("set api_keys.%s in the config file", id.Info().KeySlot), weather.ErrMissingAPIKey)
	}
	return nil
}

// requireCoordinates extracts coordinates for providers that cannot take a city name
func requireCoordinates(id weather.ProviderID, loc weather.Location) (weather.Coordinates, error) {
	coords, ok := loc.Coordinates()
	if !ok {
		return weather.Coordinates{}, weather.NewProviderError(id, weather.KindUnsupportedLocation,
			"coordinates required, city names must be resolved first", nil)
	}
	return coords, nil
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
