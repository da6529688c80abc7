package weather

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a provider failed
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindAuth
	KindMalformed
	KindRateLimited
	KindUnsupportedLocation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed response"
	case KindRateLimited:
		return "rate limited"
	case KindUnsupportedLocation:
		return "unsupported location"
	default:
		return "unknown"
	}
}

// ProviderError is a single provider's failure
type ProviderError struct {
	Provider ProviderID
	Kind     ErrorKind
	Detail   string
	Err      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Provider, e.Kind)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError for the given provider and kind
func NewProviderError(id ProviderID, kind ErrorKind, detail string, err error) *ProviderError {
	return &ProviderError{Provider: id, Kind: kind, Detail: detail, Err: err}
}

// ErrMissingAPIKey is wrapped by auth failures raised before any request is made
var ErrMissingAPIKey = errors.New("api key not configured")

// AggregateFetchError is returned when every configured provider failed.
// Failures are kept in the order the providers were attempted.
type AggregateFetchError struct {
	Failures []*ProviderError
}

func (e *AggregateFetchError) Error() string {
	if len(e.Failures) == 0 {
		return "all providers failed"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("all %d providers failed:\n  %s", len(e.Failures), strings.Join(parts, "\n  "))
}

// Unwrap exposes each provider failure to errors.Is and errors.As
func (e *AggregateFetchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// ResolutionKind classifies why a city could not be turned into coordinates
type ResolutionKind int

const (
	GeocodingFailed ResolutionKind = iota + 1
	CityNotFound
)

// ErrCityNotFound is returned by geocoders when the lookup succeeded but matched nothing
var ErrCityNotFound = errors.New("city not found")

// ResolutionError is returned when a city name cannot be resolved
type ResolutionError struct {
	City string
	Kind ResolutionKind
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Kind == CityNotFound {
		return fmt.Sprintf("city %q not found", e.City)
	}
	return fmt.Sprintf("geocoding %q failed: %v", e.City, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
