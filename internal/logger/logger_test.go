package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoggerInitialization tests the initialization of the enhanced logger
func TestLoggerInitialization(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantError bool
	}{
		{
			name: "console-only config",
			config: Config{
				Enabled:       false,
				ConsoleOutput: true,
				Level:         "info",
			},
		},
		{
			name: "file logging config",
			config: Config{
				Enabled:         true,
				Directory:       t.TempDir(),
				FilenamePattern: "test-YYYYMMDD.log",
				Level:           "debug",
				ConsoleOutput:   true,
			},
		},
		{
			name: "invalid filename pattern",
			config: Config{
				Enabled:         true,
				Directory:       t.TempDir(),
				FilenamePattern: "test-MM/DD/YYYY.log",
				Level:           "info",
			},
			wantError: true,
		},
		{
			name: "invalid log level defaults to info",
			config: Config{
				ConsoleOutput: true,
				Level:         "invalid-level",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Initialize(tt.config)
			if (err != nil) != tt.wantError {
				t.Errorf("Initialize() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

// TestLogLevels tests that log levels are properly filtered
func TestLogLevels(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	config := Config{
		Enabled:         true,
		Directory:       tmpDir,
		FilenamePattern: "test.log",
		Level:           "warn",
	}

	if err := Initialize(config); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	Debug("This debug message should not appear")
	Info("This info message should not appear")
	Warn("This warning should appear")
	Error("This error should appear")

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	logContent := string(content)

	if strings.Contains(logContent, "debug message") {
		t.Error("Debug message appeared when log level was warn")
	}
	if strings.Contains(logContent, "info message") {
		t.Error("Info message appeared when log level was warn")
	}
	if !strings.Contains(logContent, "warning should appear") {
		t.Error("Warning message did not appear")
	}
	if !strings.Contains(logContent, "error should appear") {
		t.Error("Error message did not appear")
	}

	SetLevel(DebugLevel)
	Debug("debug after level change")
	content, _ = os.ReadFile(logFile)
	if !strings.Contains(string(content), "debug after level change") {
		t.Error("SetLevel did not lower the threshold")
	}
}

// TestLogRotation tests file rotation based on size
func TestLogRotation(t *testing.T) {
	tmpDir := t.TempDir()

	config := Config{
		Enabled:         true,
		Directory:       tmpDir,
		FilenamePattern: "test-rotation.log",
		Level:           "info",
		MaxSizeMB:       1,
	}

	if err := Initialize(config); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logger := Get()
	largeMessage := strings.Repeat("This is a test message for rotation. ", 100)
	iterations := 1024*1024/len(largeMessage) + 100

	for i := 0; i < iterations; i++ {
		logger.Info(largeMessage)
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "*.log"))
	if err != nil {
		t.Fatalf("Failed to glob log files: %v", err)
	}
	if len(files) < 2 {
		t.Errorf("Expected an archived log file, found %v", files)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "test-rotation.log"))
	if err != nil {
		t.Fatalf("Failed to stat log file: %v", err)
	}
	if info.Size() >= 1024*1024 {
		t.Errorf("Log file size %d bytes, expected less than 1MB after rotation", info.Size())
	}
}

// TestFilenamePatternGeneration tests the date pattern replacement
func TestFilenamePatternGeneration(t *testing.T) {
	now := time.Now()

	tests := []struct {
		pattern  string
		contains []string
	}{
		{"test-YYYYMMDD.log", []string{"test-", now.Format("20060102"), ".log"}},
		{"app-YYYY-MM-DD.log", []string{"app-", now.Format("2006-01-02"), ".log"}},
		{"", []string{"nimbus-", now.Format("20060102")}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			result := generateLogFilename(tt.pattern)
			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("generateLogFilename(%s) = %s, expected to contain %s", tt.pattern, result, expected)
				}
			}
		})
	}
}

func TestExpandLogDirectory(t *testing.T) {
	abs := t.TempDir()
	if got := expandLogDirectory(abs); got != abs {
		t.Errorf("Absolute path changed: %s", got)
	}
	if got := expandLogDirectory(""); got != "logs" {
		t.Errorf("Expected default logs dir, got %s", got)
	}
	if got := expandLogDirectory("./custom"); got != "./custom" {
		t.Errorf("Expected relative dir kept, got %s", got)
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := expandLogDirectory("~/nimbus/logs"); got != filepath.Join(home, "nimbus", "logs") {
		t.Errorf("Expected home expansion, got %s", got)
	}
}

func TestArchiveName(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	got := archiveName(filepath.Join("logs", "nimbus.log"), now)
	want := filepath.Join("logs", "nimbus-20240501-123000.000.log")
	if got != want {
		t.Errorf("archiveName() = %s, want %s", got, want)
	}
}

func TestLogOperationStart(t *testing.T) {
	tmpDir := t.TempDir()
	if err := Initialize(Config{Enabled: true, Directory: tmpDir, FilenamePattern: "ops.log", Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	complete := LogOperationStart("geocode", map[string]any{"city": "Batumi"})
	complete(nil)
	failed := LogOperationStart("fetch", nil)
	failed(errors.New("boom"))

	content, err := os.ReadFile(filepath.Join(tmpDir, "ops.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	out := string(content)
	for _, want := range []string{"operation=geocode", "details.city=Batumi", "success=true", "Operation failed", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %q:\n%s", want, out)
		}
	}
}

func TestLogAPIRequestRedactsKeys(t *testing.T) {
	tmpDir := t.TempDir()
	if err := Initialize(Config{Enabled: true, Directory: tmpDir, FilenamePattern: "api.log", Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	LogAPIRequest("GET", "https://api.example.com/v1/current.json?q=Paris&key=s3cret", map[string]string{"User-Agent": "nimbus"})

	content, _ := os.ReadFile(filepath.Join(tmpDir, "api.log"))
	if strings.Contains(string(content), "s3cret") {
		t.Errorf("API key leaked into log:\n%s", content)
	}
	if !strings.Contains(string(content), "REDACTED") {
		t.Errorf("Expected redacted key in log:\n%s", content)
	}
}

func TestLevelForVerbosity(t *testing.T) {
	tests := map[int]Level{0: ErrorLevel, 1: WarnLevel, 2: InfoLevel, 3: DebugLevel, 7: DebugLevel}
	for v, expected := range tests {
		if got := LevelForVerbosity(v); got != expected {
			t.Errorf("LevelForVerbosity(%d) = %v, expected %v", v, got, expected)
		}
	}
}

// TestParseLevel tests log level parsing
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.hasError {
				t.Errorf("ParseLevel(%s) error = %v, hasError %v", tt.input, err, tt.hasError)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%s) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

// TestLoggerCleanup tests that old rotated files are removed
func TestLoggerCleanup(t *testing.T) {
	tmpDir := t.TempDir()

	for i := 0; i < 5; i++ {
		name := filepath.Join(tmpDir, "app-2024010"+string(rune('1'+i))+".log")
		if err := os.WriteFile(name, []byte("old"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
		old := time.Now().Add(-time.Duration(5-i) * time.Hour)
		os.Chtimes(name, old, old)
	}

	l := &EnhancedLogger{config: Config{FilenamePattern: "app-YYYYMMDD.log", MaxFiles: 2}}
	l.cleanOldFiles(tmpDir)

	files, _ := filepath.Glob(filepath.Join(tmpDir, "app-*.log"))
	if len(files) != 2 {
		t.Errorf("Expected 2 files after cleanup, got %d: %v", len(files), files)
	}
}
