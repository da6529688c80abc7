package api

import (
	"fmt"
	"net/http"

	"nimbus/internal/errorutil"
	"nimbus/weather"
)

// transportError classifies a failure that produced no HTTP response
func transportError(id weather.ProviderID, operation, url string, err error) *weather.ProviderError {
	netErr := errorutil.NewNetworkError(operation, url, 0, err)

	detail := "request failed"
	switch {
	case errorutil.IsTimeout(err):
		detail = "timed out"
	case errorutil.IsDNS(err):
		detail = "DNS lookup failed"
	case errorutil.IsConnectionRefused(err):
		detail = "connection refused"
	}
	return weather.NewProviderError(id, weather.KindNetwork, detail, netErr)
}

// statusError maps an unsuccessful HTTP status onto a provider error kind
func statusError(id weather.ProviderID, operation, url string, status int, apiMessage string) *weather.ProviderError {
	netErr := errorutil.NewNetworkError(operation, url, status, fmt.Errorf("%s", http.StatusText(status)))

	detail := apiMessage
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", status)
	}

	return weather.NewProviderError(id, kindForStatus(status), detail, netErr)
}

func kindForStatus(status int) weather.ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return weather.KindAuth
	case status == http.StatusTooManyRequests:
		return weather.KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusNotFound:
		return weather.KindUnsupportedLocation
	case status >= 500:
		return weather.KindNetwork
	default:
		return weather.KindMalformed
	}
}
