package securefs

import (
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

// GetLogger returns the securefs package logger scoped to the securefs module.
func GetLogger() logger.Logger {
	return logger.Global().Module("securefs")
}

// SecureFS provides filesystem operations restricted to a base directory.
// All access goes through an os.Root, so "../" components and symlinks that
// point outside the base directory are rejected by the OS.
type SecureFS struct {
	baseDir         string
	root            *os.Root
	maxReadFileSize int64 // 0 = unlimited
}

// New creates the base directory if needed and opens it as a sandbox.
func New(baseDir string) (*SecureFS, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o750); err != nil {
		return nil, errors.New(err).
			Component("securefs").
			Category(errors.CategoryFileIO).
			Context("operation", "create_base_dir").
			Context("base_dir", absPath).
			Build()
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, errors.New(err).
			Component("securefs").
			Category(errors.CategorySystem).
			Context("operation", "open_root").
			Context("base_dir", absPath).
			Build()
	}

	return &SecureFS{baseDir: absPath, root: root}, nil
}

// BaseDir returns the absolute base directory.
func (sfs *SecureFS) BaseDir() string {
	return sfs.baseDir
}

// Close closes the underlying Root.
func (sfs *SecureFS) Close() error {
	if sfs.root != nil {
		return sfs.root.Close()
	}
	return nil
}

// SetMaxReadFileSize sets the maximum size ReadFile accepts, 0 means unlimited.
func (sfs *SecureFS) SetMaxReadFileSize(maxSize int64) {
	sfs.maxReadFileSize = maxSize
}

// validateRelativePath cleans a path that is relative to the base directory
// and rejects absolute paths and upward traversal.
func (sfs *SecureFS) validateRelativePath(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	cleaned := filepath.Clean(relPath)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: path must be relative, got %q", ErrInvalidPath, relPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, relPath)
	}

	return cleaned, nil
}

// relativePath converts a path to one relative to the base directory.
// Absolute paths must lie inside the base directory; relative paths are
// interpreted against the base directory.
func (sfs *SecureFS) relativePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return sfs.validateRelativePath(path)
	}

	rel, err := filepath.Rel(sfs.baseDir, filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %s is outside allowed directory %s", ErrPathTraversal, path, sfs.baseDir)
	}
	return rel, nil
}

// OpenFile opens a file inside the sandbox.
func (sfs *SecureFS) OpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	relPath, err := sfs.relativePath(path)
	if err != nil {
		return nil, err
	}
	return sfs.root.OpenFile(relPath, flag, perm)
}

// Open opens a file for reading inside the sandbox.
func (sfs *SecureFS) Open(path string) (*os.File, error) {
	return sfs.OpenFile(path, os.O_RDONLY, 0)
}

// Stat returns file info inside the sandbox.
func (sfs *SecureFS) Stat(path string) (fs.FileInfo, error) {
	relPath, err := sfs.relativePath(path)
	if err != nil {
		return nil, err
	}
	return sfs.root.Stat(relPath)
}

// Exists reports whether a path exists inside the sandbox.
func (sfs *SecureFS) Exists(path string) (bool, error) {
	_, err := sfs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Remove removes a file inside the sandbox.
func (sfs *SecureFS) Remove(path string) error {
	relPath, err := sfs.relativePath(path)
	if err != nil {
		return err
	}
	return sfs.root.Remove(relPath)
}

// Rename renames oldpath to newpath, both inside the sandbox.
func (sfs *SecureFS) Rename(oldpath, newpath string) error {
	oldRel, err := sfs.relativePath(oldpath)
	if err != nil {
		return err
	}
	newRel, err := sfs.relativePath(newpath)
	if err != nil {
		return err
	}
	return sfs.root.Rename(oldRel, newRel)
}

// ReadFile reads a regular file inside the sandbox.
func (sfs *SecureFS) ReadFile(path string) ([]byte, error) {
	file, err := sfs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			GetLogger().Warn("Failed to close file", logger.Error(err))
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return nil, ErrNotRegularFile
	}
	if sfs.maxReadFileSize > 0 && stat.Size() > sfs.maxReadFileSize {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d bytes",
			ErrFileTooLarge, stat.Size(), sfs.maxReadFileSize)
	}

	return io.ReadAll(file)
}

// WriteFile creates or truncates a file inside the sandbox and writes data to it.
func (sfs *SecureFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	file, err := sfs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteFileAtomic writes data to a temporary sibling and renames it over
// path, so readers observe either the old or the new content.
func (sfs *SecureFS) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	relPath, err := sfs.relativePath(path)
	if err != nil {
		return err
	}

	tmpPath := relPath + ".tmp"
	if err := sfs.WriteFile(tmpPath, data, perm); err != nil {
		_ = sfs.root.Remove(tmpPath)
		return err
	}
	if err := sfs.root.Rename(tmpPath, relPath); err != nil {
		_ = sfs.root.Remove(tmpPath)
		return err
	}
	return nil
}

// mapOpenErrorToHTTP converts file open errors to appropriate HTTP errors
func mapOpenErrorToHTTP(err error, effectivePath string) *echo.HTTPError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("File not found: %s", effectivePath))
	case errors.Is(err, fs.ErrPermission):
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	case errors.Is(err, ErrPathTraversal) || errors.Is(err, ErrInvalidPath):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file path").SetInternal(err)
	case errors.Is(err, ErrNotRegularFile):
		return echo.NewHTTPError(http.StatusForbidden, "Not a regular file")
	default:
		// os.Root reports symlink escapes with a plain path error
		if strings.Contains(err.Error(), "escapes from parent") {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid file path").SetInternal(err)
		}
		GetLogger().Error("Unhandled error serving file",
			logger.String("path", effectivePath),
			logger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Error serving file").SetInternal(err)
	}
}

// getContentType determines the content type for a file from its extension
func getContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

// ServeRelativeFile serves a file whose path is relative to the base directory.
// This is the sandboxed alternative to echo.Context.File().
func (sfs *SecureFS) ServeRelativeFile(c echo.Context, relPath string) error {
	validated, err := sfs.validateRelativePath(relPath)
	if err != nil {
		return mapOpenErrorToHTTP(err, relPath)
	}

	f, err := sfs.root.Open(validated)
	if err != nil {
		GetLogger().Debug("Error opening file",
			logger.String("path", validated),
			logger.Error(err))
		return mapOpenErrorToHTTP(err, validated)
	}
	defer func() {
		if err := f.Close(); err != nil {
			GetLogger().Warn("Failed to close file", logger.Error(err))
		}
	}()

	stat, err := f.Stat()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get file info").SetInternal(err)
	}
	if !stat.Mode().IsRegular() {
		return mapOpenErrorToHTTP(ErrNotRegularFile, validated)
	}

	if c.Response().Header().Get(echo.HeaderContentType) == "" {
		c.Response().Header().Set(echo.HeaderContentType, getContentType(validated))
	}

	http.ServeContent(c.Response(), c.Request(), filepath.Base(validated), stat.ModTime(), f)
	return nil
}
