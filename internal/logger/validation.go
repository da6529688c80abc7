package logger

import (
	"fmt"
	"strings"
)

// FilenameValidationError reports a log filename pattern that cannot be used on every platform
type FilenameValidationError struct {
	Pattern string
	Reason  string
}

func (e *FilenameValidationError) Error() string {
	return fmt.Sprintf("filename pattern %q %s", e.Pattern, e.Reason)
}

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "LPT1": true, "LPT2": true, "LPT3": true,
}

// ValidateFilenamePattern rejects patterns containing path separators or
// characters that are invalid in Windows filenames
func ValidateFilenamePattern(pattern string) error {
	if pattern == "" {
		return nil
	}

	for _, ch := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"} {
		if strings.Contains(pattern, ch) {
			return &FilenameValidationError{Pattern: pattern, Reason: fmt.Sprintf("contains invalid character '%s'", ch)}
		}
	}

	if strings.HasSuffix(pattern, ".") || strings.HasSuffix(pattern, " ") {
		return &FilenameValidationError{Pattern: pattern, Reason: "must not end with a dot or space"}
	}

	base := strings.ToUpper(strings.SplitN(pattern, ".", 2)[0])
	if reservedNames[base] {
		return &FilenameValidationError{Pattern: pattern, Reason: "uses a reserved device name"}
	}

	return nil
}
