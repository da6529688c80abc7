package errorutil

import (
	"fmt"
	"log/slog"
)

// LogAndWrap logs an error with structured context and returns a wrapped error
func LogAndWrap(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) error {
	if logger == nil || err == nil {
		return err
	}

	logger.Error(operation+" failed", withError(err, attrs)...)
	return fmt.Errorf("%s: %w", operation, err)
}

// LogWarning logs a non-fatal error as warning without wrapping.
// Used for recoverable errors that should be logged but don't stop processing
func LogWarning(logger *slog.Logger, operation string, err error, attrs ...slog.Attr) {
	if logger == nil || err == nil {
		return
	}

	logger.Warn("Non-fatal error in "+operation, withError(err, attrs)...)
}

// LocationContext creates context attributes for weather operations
func LocationContext(location, provider, units string) []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	if location != "" {
		attrs = append(attrs, slog.String("location", location))
	}
	if provider != "" {
		attrs = append(attrs, slog.String("provider", provider))
	}
	if units != "" {
		attrs = append(attrs, slog.String("units", units))
	}
	return attrs
}

// FileContext creates context attributes for file operations
func FileContext(filePath string) []slog.Attr {
	if filePath == "" {
		return nil
	}
	return []slog.Attr{slog.String("file_path", filePath)}
}

func withError(err error, attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs)+1)
	out = append(out, slog.String("error", err.Error()))
	for _, a := range attrs {
		out = append(out, a)
	}
	return out
}
