package api

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"nimbus/weather"
)

const openUVURL = "https://api.openuv.io/api/v1/uv"

// OpenUV supplies the UV index for coordinates. It never produces a full report.
type OpenUV struct {
	client *resty.Client
	url    string
}

// NewOpenUV creates an OpenUV client
func NewOpenUV(client *resty.Client) *OpenUV {
	return &OpenUV{client: client, url: openUVURL}
}

func (p *OpenUV) ID() weather.ProviderID { return weather.OpenUV }

// UVIndex returns the current UV index at coords
func (p *OpenUV) UVIndex(ctx context.Context, coords weather.Coordinates, apiKey string, timeout time.Duration) (float64, error) {
	if err := RequireKey(p.ID(), apiKey); err != nil {
		return 0, err
	}

	body, err := call{
		provider:  p.ID(),
		operation: "uv",
		url:       p.url,
		query: map[string]string{
			"lat": formatCoord(coords.Lat),
			"lng": formatCoord(coords.Lon),
		},
		headers:    map[string]string{"x-access-token": apiKey},
		timeout:    timeout,
		apiMessage: openUVMessage,
	}.do(ctx, p.client)
	if err != nil {
		return 0, err
	}

	var data struct {
		Result *struct {
			UV float64 `json:"uv"`
		} `json:"result"`
	}
	if err := decode(p.ID(), body, &data); err != nil {
		return 0, err
	}
	if data.Result == nil {
		return 0, weather.NewProviderError(p.ID(), weather.KindMalformed, "response has no result", nil)
	}
	return data.Result.UV, nil
}

func openUVMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}
