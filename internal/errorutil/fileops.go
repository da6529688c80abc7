package errorutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// FileError represents a file operation error with additional context
type FileError struct {
	Operation  string // The operation that failed (e.g., "read", "write", "create")
	Path       string // The file path that was being accessed
	Underlying error  // The underlying error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s operation failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *FileError) Unwrap() error {
	return e.Underlying
}

// NewFileError creates a new FileError with proper context
func NewFileError(operation, path string, err error) *FileError {
	return &FileError{
		Operation:  operation,
		Path:       path,
		Underlying: err,
	}
}

// LogFileError logs a file error with appropriate structured context
func LogFileError(logger *slog.Logger, fileErr *FileError) *FileError {
	if logger == nil {
		return fileErr
	}

	logger.Error("File operation failed",
		slog.String("operation", fileErr.Operation),
		slog.String("file_path", fileErr.Path),
		slog.String("error", fileErr.Underlying.Error()),
		slog.String("error_type", FileErrorType(fileErr.Underlying)))
	return fileErr
}

// FileErrorType returns a short classification of a file error
func FileErrorType(err error) string {
	if err == nil {
		return "unknown"
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "file_not_found"
	case errors.Is(err, fs.ErrPermission):
		return "permission_denied"
	case errors.Is(err, fs.ErrExist):
		return "file_exists"
	case errors.Is(err, syscall.ENOSPC):
		return "no_space_left"
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return "too_many_open_files"
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Sprintf("path_error_%s", pathErr.Op)
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return fmt.Sprintf("link_error_%s", linkErr.Op)
	}

	return "generic_file_error"
}

// SafeFileWrite writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partial file
func SafeFileWrite(logger *slog.Logger, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return LogFileError(logger, NewFileError("mkdir", dir, err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return LogFileError(logger, NewFileError("create_temp", dir, err))
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return LogFileError(logger, NewFileError("write_temp", tempPath, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return LogFileError(logger, NewFileError("close_temp", tempPath, err))
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		os.Remove(tempPath)
		return LogFileError(logger, NewFileError("chmod", tempPath, err))
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return LogFileError(logger, NewFileError("move", path, err))
	}

	if logger != nil {
		logger.Debug("File written successfully",
			slog.String("file_path", path),
			slog.Int("bytes_written", len(data)))
	}

	return nil
}

// RemoveIfExists deletes path and treats a missing file as success
func RemoveIfExists(logger *slog.Logger, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return LogFileError(logger, NewFileError("remove", path, err))
	}
	return nil
}
