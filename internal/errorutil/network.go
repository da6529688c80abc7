package errorutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"syscall"
)

// NetworkError represents a transport-level failure with additional context
type NetworkError struct {
	Operation  string // The operation that failed (e.g., "current conditions", "geocode")
	URL        string // The URL that was being accessed
	StatusCode int    // HTTP status code (if applicable)
	Underlying error  // The underlying error
	Retryable  bool   // Whether a later attempt could succeed
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed for %s: HTTP %d: %v", e.Operation, e.URL, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.URL, e.Underlying)
}

func (e *NetworkError) Unwrap() error {
	return e.Underlying
}

// NewNetworkError creates a new NetworkError for a failed request
func NewNetworkError(operation, url string, statusCode int, err error) *NetworkError {
	netErr := &NetworkError{
		Operation:  operation,
		URL:        url,
		StatusCode: statusCode,
		Underlying: err,
	}
	netErr.Retryable = IsTimeout(err) || IsDNS(err) || IsConnectionRefused(err) || retryableStatus(statusCode)
	return netErr
}

// retryableStatus reports throttling and server-side failures
func retryableStatus(code int) bool {
	return code == 429 || (code >= 500 && code <= 599)
}

// LogNetworkError logs a network error with structured context
func LogNetworkError(logger *slog.Logger, netErr *NetworkError) *NetworkError {
	if logger == nil || netErr == nil {
		return netErr
	}

	attrs := []any{
		slog.String("operation", netErr.Operation),
		slog.String("url", netErr.URL),
		slog.Bool("retryable", netErr.Retryable),
	}
	if netErr.Underlying != nil {
		attrs = append(attrs, slog.String("error", netErr.Underlying.Error()))
	}
	if netErr.StatusCode > 0 {
		attrs = append(attrs, slog.Int("status_code", netErr.StatusCode))
	}

	level := slog.LevelWarn
	if !netErr.Retryable {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "Network operation failed", attrs...)
	return netErr
}

// IsTimeout checks if an error is a timeout or deadline error
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// IsDNS checks if an error is a DNS resolution error
func IsDNS(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsConnectionRefused checks if an error is a connection refused error
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
