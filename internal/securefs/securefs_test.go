package securefs

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSecureFS creates a temporary directory and SecureFS instance for testing
func setupSecureFS(t *testing.T) (sfs *SecureFS, tempDir string) {
	t.Helper()

	tempDir = t.TempDir()
	sfs, err := New(tempDir)
	require.NoError(t, err, "Failed to create SecureFS")
	t.Cleanup(func() { _ = sfs.Close() })

	return sfs, tempDir
}

func TestNewCreatesBaseDir(t *testing.T) {
	t.Parallel()
	base := filepath.Join(t.TempDir(), "nested", "data")

	sfs, err := New(base)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sfs.Close() })

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, base, sfs.BaseDir())
}

func TestSecureFSWriteAndReadFile(t *testing.T) {
	t.Parallel()
	sfs, tempDir := setupSecureFS(t)

	require.NoError(t, sfs.WriteFile("rec_0.jpg", []byte("jpeg"), 0o600))

	data, err := sfs.ReadFile("rec_0.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	// absolute paths inside the base are accepted too
	data, err = sfs.ReadFile(filepath.Join(tempDir, "rec_0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestSecureFSExists(t *testing.T) {
	t.Parallel()
	sfs, _ := setupSecureFS(t)

	exists, err := sfs.Exists("missing")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, sfs.WriteFile("present", []byte("x"), 0o600))
	exists, err = sfs.Exists("present")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReadFileWithSizeLimit(t *testing.T) {
	t.Parallel()
	sfs, _ := setupSecureFS(t)
	sfs.SetMaxReadFileSize(4)

	require.NoError(t, sfs.WriteFile("small", []byte("abc"), 0o600))
	require.NoError(t, sfs.WriteFile("large", []byte("abcdef"), 0o600))

	_, err := sfs.ReadFile("small")
	require.NoError(t, err)

	_, err = sfs.ReadFile("large")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()
	sfs, tempDir := setupSecureFS(t)

	require.NoError(t, sfs.WriteFile("rec_dims", []byte("old"), 0o600))
	require.NoError(t, sfs.WriteFileAtomic("rec_dims", []byte("new"), 0o600))

	data, err := os.ReadFile(filepath.Join(tempDir, "rec_dims"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	_, err = os.Stat(filepath.Join(tempDir, "rec_dims.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file should be gone")
}

func TestRenameAndRemove(t *testing.T) {
	t.Parallel()
	sfs, _ := setupSecureFS(t)

	require.NoError(t, sfs.WriteFile("a", []byte("x"), 0o600))
	require.NoError(t, sfs.Rename("a", "b"))

	exists, err := sfs.Exists("b")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, sfs.Remove("b"))
	exists, err = sfs.Exists("b")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPathTraversalPrevention(t *testing.T) {
	t.Parallel()
	sfs, tempDir := setupSecureFS(t)

	testCases := []struct {
		name string
		path string
		want error
	}{
		{"parent", "../outside.txt", ErrPathTraversal},
		{"nested parent", "sub/../../outside.txt", ErrPathTraversal},
		{"absolute outside", filepath.Join(filepath.Dir(tempDir), "outside.txt"), ErrPathTraversal},
		{"empty", "", ErrInvalidPath},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sfs.ReadFile(tc.path)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFollowingEscapingSymlinkFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	t.Parallel()
	sfs, tempDir := setupSecureFS(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(tempDir, "link.txt")))

	_, err := sfs.ReadFile("link.txt")
	assert.Error(t, err, "symlink escaping the sandbox must not be readable")
}

func TestServeRelativeFile(t *testing.T) {
	t.Parallel()
	sfs, _ := setupSecureFS(t)
	require.NoError(t, sfs.WriteFile("rec_0.jpg", []byte("jpegdata"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(sfs.BaseDir(), "dir"), 0o750))

	e := echo.New()

	testCases := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"existing file", "rec_0.jpg", http.StatusOK},
		{"missing file", "nope.jpg", http.StatusNotFound},
		{"traversal", "../etc/passwd", http.StatusBadRequest},
		{"directory", "dir", http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := sfs.ServeRelativeFile(c, tc.path)
			if tc.wantStatus == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
				assert.Equal(t, "jpegdata", rec.Body.String())
				return
			}

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.wantStatus, httpErr.Code)
		})
	}
}
