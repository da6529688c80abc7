package errorutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"url error with net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.want {
				t.Errorf("IsTimeout(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsDNSAndConnectionRefused(t *testing.T) {
	dns := &url.Error{Op: "Get", URL: "http://nowhere.invalid", Err: &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}}
	if !IsDNS(dns) {
		t.Error("Expected DNS error to be detected")
	}
	if IsDNS(errors.New("boom")) {
		t.Error("Plain error is not a DNS error")
	}

	refused := &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	if !IsConnectionRefused(refused) {
		t.Error("Expected connection refused to be detected")
	}
}

func TestNewNetworkError(t *testing.T) {
	netErr := NewNetworkError("current conditions", "https://example.com", 503, errors.New("unavailable"))
	if !netErr.Retryable {
		t.Error("503 should be retryable")
	}
	if !strings.Contains(netErr.Error(), "HTTP 503") {
		t.Errorf("Unexpected message: %s", netErr.Error())
	}

	auth := NewNetworkError("current conditions", "https://example.com", 401, errors.New("unauthorized"))
	if auth.Retryable {
		t.Error("401 should not be retryable")
	}

	var logOutput strings.Builder
	LogNetworkError(slog.New(slog.NewTextHandler(&logOutput, nil)), auth)
	if !strings.Contains(logOutput.String(), "status_code=401") {
		t.Errorf("Expected status code in log: %s", logOutput.String())
	}
}

func TestSafeFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.toml")

	if err := SafeFileWrite(nil, path, []byte("a = 1\n"), 0644); err != nil {
		t.Fatalf("SafeFileWrite failed: %v", err)
	}
	if err := SafeFileWrite(nil, path, []byte("a = 2\n"), 0644); err != nil {
		t.Fatalf("SafeFileWrite overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "a = 2\n" {
		t.Errorf("Unexpected content %q", data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "nested", "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("Temporary files left behind: %v", leftovers)
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	if err := RemoveIfExists(nil, path); err != nil {
		t.Errorf("Removing a missing file should succeed, got %v", err)
	}
	if got := FileErrorType(&os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}); got != "file_not_found" {
		t.Errorf("FileErrorType = %s", got)
	}
}
