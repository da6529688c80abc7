package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level represents logging severity using slog levels
type Level slog.Level

const (
	DebugLevel Level = Level(slog.LevelDebug)
	InfoLevel  Level = Level(slog.LevelInfo)
	WarnLevel  Level = Level(slog.LevelWarn)
	ErrorLevel Level = Level(slog.LevelError)
)

// Config represents logging configuration compatible with the config package
type Config struct {
	Enabled         bool   `toml:"enabled"`
	Directory       string `toml:"directory"`
	FilenamePattern string `toml:"filename_pattern"`
	Level           string `toml:"level"`
	MaxFiles        int    `toml:"max_files"`
	MaxSizeMB       int    `toml:"max_size_mb"`
	ConsoleOutput   bool   `toml:"console_output"`
}

// EnhancedLogger wraps slog.Logger with a colourised console handler and a
// rotating file handler
type EnhancedLogger struct {
	*slog.Logger
	config   Config
	level    *slog.LevelVar
	file     *os.File
	fileName string
	fileSize int64
	mu       sync.Mutex
}

var (
	globalLogger *EnhancedLogger
	globalMu     sync.Mutex
)

// Initialize creates and configures the global logger instance with the given configuration
func Initialize(config Config) error {
	l, err := NewEnhancedLogger(config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	old := globalLogger
	globalLogger = l
	globalMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Get returns the global logger instance, creating a console logger at warn level if not initialized
func Get() *EnhancedLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		level := new(slog.LevelVar)
		level.Set(slog.LevelWarn)
		globalLogger = &EnhancedLogger{
			Logger: slog.New(newConsoleHandler(level)),
			level:  level,
		}
	}
	return globalLogger
}

// NewEnhancedLogger creates a new enhanced logger with the given configuration
func NewEnhancedLogger(config Config) (*EnhancedLogger, error) {
	if config.Enabled && config.FilenamePattern != "" {
		if err := ValidateFilenamePattern(config.FilenamePattern); err != nil {
			return nil, fmt.Errorf("invalid filename pattern: %w", err)
		}
	}

	l := &EnhancedLogger{
		config: config,
		level:  new(slog.LevelVar),
	}
	l.level.Set(parseLogLevel(config.Level))

	var handlers []slog.Handler

	if config.ConsoleOutput || !config.Enabled {
		handlers = append(handlers, newConsoleHandler(l.level))
	}

	if config.Enabled {
		logDir := expandLogDirectory(config.Directory)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		logFile, err := l.openLogFileUnsafe()
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = logFile

		// The logger itself is the writer so every record passes the rotation check
		handlers = append(handlers, slog.NewTextHandler(l, &slog.HandlerOptions{
			Level:       l.level,
			ReplaceAttr: replaceFileAttr,
		}))
	}

	if len(handlers) == 1 {
		l.Logger = slog.New(handlers[0])
	} else {
		l.Logger = slog.New(fanout(handlers))
	}

	l.Debug("Logger initialized",
		slog.String("log_file", l.fileName),
		slog.String("level", l.level.Level().String()),
		slog.Bool("console", config.ConsoleOutput))

	return l, nil
}

// newConsoleHandler writes human-oriented records to stderr, coloured only on a terminal
func newConsoleHandler(level slog.Leveler) slog.Handler {
	return tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	})
}

func replaceFileAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02T15:04:05.000-07:00"))
	}
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(source.File), source.Line))
		}
	}
	return a
}

// SetLevel changes the minimum level of every handler
func (l *EnhancedLogger) SetLevel(level Level) {
	if l.level != nil {
		l.level.Set(slog.Level(level))
	}
}

// openLogFileUnsafe creates or opens the current log file (caller must hold mutex)
func (l *EnhancedLogger) openLogFileUnsafe() (*os.File, error) {
	logDir := expandLogDirectory(l.config.Directory)
	fileName := generateLogFilename(l.config.FilenamePattern)
	filePath := filepath.Join(logDir, fileName)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	l.fileName = filePath
	l.fileSize = info.Size()

	return file, nil
}

// expandLogDirectory resolves a leading "~" to the home directory. Other
// relative paths stay relative to the working directory.
func expandLogDirectory(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "logs"
	}
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "logs"
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~"))
}

// generateLogFilename creates a filename from the pattern using date formatting
func generateLogFilename(pattern string) string {
	if pattern == "" {
		pattern = "nimbus-YYYYMMDD.log"
	}

	now := time.Now()
	r := strings.NewReplacer(
		"YYYY", fmt.Sprintf("%04d", now.Year()),
		"YY", fmt.Sprintf("%02d", now.Year()%100),
		"MM", fmt.Sprintf("%02d", now.Month()),
		"DD", fmt.Sprintf("%02d", now.Day()),
		"HH", fmt.Sprintf("%02d", now.Hour()),
	)
	return r.Replace(pattern)
}

// parseLogLevel converts a configured level name, falling back to info
func parseLogLevel(level string) slog.Level {
	l, _ := ParseLevel(level)
	return slog.Level(l)
}

// checkRotationUnsafe checks if log rotation is needed (caller must hold mutex)
func (l *EnhancedLogger) checkRotationUnsafe() error {
	if l.file == nil || !l.config.Enabled {
		return nil
	}

	maxSize := int64(l.config.MaxSizeMB) * 1024 * 1024
	if maxSize > 0 && l.fileSize >= maxSize {
		return l.rotateUnsafe()
	}

	// Daily rotation when the pattern carries a date
	if filepath.Base(l.fileName) != generateLogFilename(l.config.FilenamePattern) {
		return l.rotateUnsafe()
	}

	return nil
}

// rotateUnsafe performs log file rotation (caller must hold mutex)
func (l *EnhancedLogger) rotateUnsafe() error {
	if l.file != nil {
		l.file.Close()
	}

	if l.fileName != "" {
		if info, err := os.Stat(l.fileName); err == nil && info.Size() > 0 {
			if err := os.Rename(l.fileName, archiveName(l.fileName, time.Now())); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to archive log file: %v\n", err)
			}
		}
	}

	file, err := l.openLogFileUnsafe()
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file

	if l.config.MaxFiles > 0 {
		go l.cleanOldFiles(filepath.Dir(l.fileName))
	}

	return nil
}

// archiveName inserts a timestamp before the extension: nimbus.log -> nimbus-20240501-120000.000.log
func archiveName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%s%s", strings.TrimSuffix(path, ext), now.Format("20060102-150405.000"), ext)
}

// cleanOldFiles keeps the MaxFiles newest log files and removes the rest
func (l *EnhancedLogger) cleanOldFiles(logDir string) {
	pattern := l.config.FilenamePattern
	if pattern == "" {
		pattern = "nimbus-YYYYMMDD.log"
	}
	ext := filepath.Ext(pattern)
	stem := strings.NewReplacer("YYYY", "*", "YY", "*", "MM", "*", "DD", "*", "HH", "*").
		Replace(strings.TrimSuffix(pattern, ext))

	// Archived files carry an extra timestamp suffix before the extension
	matches, err := filepath.Glob(filepath.Join(logDir, stem+"*"+ext))
	if err != nil {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}

	files := make([]fileInfo, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: match, modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	if len(files) > l.config.MaxFiles {
		for _, f := range files[l.config.MaxFiles:] {
			os.Remove(f.path)
		}
	}
}

// Write implements io.Writer for the file handler with a rotation check
func (l *EnhancedLogger) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return len(p), nil
	}

	n, err = l.file.Write(p)
	if err != nil {
		return
	}
	l.fileSize += int64(n)

	if err := l.checkRotationUnsafe(); err != nil {
		fmt.Fprintf(os.Stderr, "Log rotation error: %v\n", err)
	}

	return
}

// Close closes the log file
func (l *EnhancedLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel sets the minimum level of the global logger
func SetLevel(level Level) {
	Get().SetLevel(level)
}

// LevelForVerbosity maps the CLI verbosity count onto a level
func LevelForVerbosity(v int) Level {
	switch {
	case v <= 0:
		return ErrorLevel
	case v == 1:
		return WarnLevel
	case v == 2:
		return InfoLevel
	default:
		return DebugLevel
	}
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	Get().Debug(fmt.Sprintf(format, args...))
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	Get().Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	Get().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	Get().Error(fmt.Sprintf(format, args...))
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	Get().Error(fmt.Sprintf(format, args...))
	Get().Close()
	os.Exit(1)
}

// LogAPIRequest logs the start of an API request with structured fields
func LogAPIRequest(method, url string, headers map[string]string) {
	fields := []any{
		"method", method,
		"url", redactURL(url),
		"type", "api_request",
	}

	if userAgent := headers["User-Agent"]; userAgent != "" {
		fields = append(fields, "user_agent", userAgent)
	}

	Get().LogAttrs(context.Background(), slog.LevelDebug, "API request started", slog.Group("request", fields...))
}

// LogAPIResponse logs an API response with structured fields
func LogAPIResponse(method, url string, statusCode int, duration string, bodySize int) {
	level := slog.LevelDebug
	if statusCode >= 400 {
		level = slog.LevelInfo
	}

	Get().LogAttrs(context.Background(), level, "API request completed",
		slog.Group("request",
			"method", method,
			"url", redactURL(url),
			"status_code", statusCode,
			"duration", duration,
			"body_size", bodySize,
			"type", "api_response",
		),
	)
}

// LogOperationStart logs the beginning of an operation and returns a completion function
func LogOperationStart(operation string, details map[string]any) func(error) {
	startTime := time.Now()

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("type", "operation_start"),
	}

	if len(details) > 0 {
		detailAttrs := make([]any, 0, len(details)*2)
		for k, v := range details {
			detailAttrs = append(detailAttrs, k, v)
		}
		attrs = append(attrs, slog.Group("details", detailAttrs...))
	}

	Get().LogAttrs(context.Background(), slog.LevelDebug, "Operation started", attrs...)

	return func(err error) {
		completionAttrs := []slog.Attr{
			slog.String("operation", operation),
			slog.String("type", "operation_complete"),
			slog.Duration("duration", time.Since(startTime)),
			slog.Bool("success", err == nil),
		}

		level := slog.LevelDebug
		message := "Operation completed"
		if err != nil {
			level = slog.LevelInfo
			message = "Operation failed"
			completionAttrs = append(completionAttrs, slog.String("error", err.Error()))
		}

		Get().LogAttrs(context.Background(), level, message, completionAttrs...)
	}
}

// LogWithFields logs a message with custom structured fields
func LogWithFields(level Level, message string, fields map[string]any) {
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	Get().LogAttrs(context.Background(), slog.Level(level), message, attrs...)
}

// ParseLevel converts a string to a log level
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", levelStr)
	}
}
