package spectrogram

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/errors"
)

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Manifest
		wantErr bool
	}{
		{"three fields", "2200 1500 16", Manifest{Height: 2200, Width: 1500, Segments: 16}, false},
		{"legacy two fields", "2200 1500\n", Manifest{Height: 2200, Width: 1500, Segments: 16}, false},
		{"legacy narrow image", "30 5", Manifest{Height: 30, Width: 5, Segments: 5}, false},
		{"empty", "", Manifest{}, true},
		{"garbage", "tall wide", Manifest{}, true},
		{"zero width", "30 0", Manifest{}, true},
		{"too many fields", "1 2 3 4", Manifest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseManifest([]byte(tt.data), 16)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManifestString(t *testing.T) {
	m := Manifest{Height: 30, Width: 397, Segments: 4}
	assert.Equal(t, "30 397 4", m.String())

	parsed, err := ParseManifest([]byte(m.String()), 16)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestReferenceName(t *testing.T) {
	name, err := ReferenceName(filepath.Join("audio", "site1", "rec_001.wav"))
	require.NoError(t, err)
	assert.Equal(t, "rec_001.wav", name)

	for _, bad := range []string{"", ".", "..", string(filepath.Separator)} {
		_, err := ReferenceName(bad)
		assert.Error(t, err, "reference %q", bad)
	}
}

func segmentsOf(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out
}

func TestCacheStoreAndLookup(t *testing.T) {
	c := NewCache(newTestFS(t), 16)

	_, ok, err := c.Lookup("rec.wav")
	require.NoError(t, err)
	assert.False(t, ok)

	m := Manifest{Height: 30, Width: 100, Segments: 4}
	require.NoError(t, c.Store("rec.wav", m, segmentsOf(4)))

	got, ok, err := c.Lookup("rec.wav")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m, got)

	data, err := os.ReadFile(filepath.Join(c.Dir(), "rec.wav_dims"))
	require.NoError(t, err)
	assert.Equal(t, "30 100 4", string(data))

	paths := c.SegmentPaths("rec.wav", 4)
	assert.Equal(t, filepath.Join(c.Dir(), "rec.wav_3.jpg"), paths[3])
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestCacheMissingSegmentIsMiss(t *testing.T) {
	c := NewCache(newTestFS(t), 16)
	require.NoError(t, c.Store("rec.wav", Manifest{Height: 1, Width: 10, Segments: 3}, segmentsOf(3)))
	require.NoError(t, os.Remove(filepath.Join(c.Dir(), "rec.wav_1.jpg")))

	_, ok, err := c.Lookup("rec.wav")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheLegacyManifest(t *testing.T) {
	c := NewCache(newTestFS(t), 2)
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "old.wav_dims"), []byte("20 50"), 0o600))

	_, ok, err := c.Lookup("old.wav")
	require.NoError(t, err)
	assert.False(t, ok, "segments are missing")

	for i := range 2 {
		require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), SegmentName("old.wav", i)), []byte("x"), 0o600))
	}
	m, ok, err := c.Lookup("old.wav")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Manifest{Height: 20, Width: 50, Segments: 2}, m)
}

func TestCacheCorruptManifestIsMiss(t *testing.T) {
	c := NewCache(newTestFS(t), 16)
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "bad.wav_dims"), []byte("nope"), 0o600))

	_, ok, err := c.Lookup("bad.wav")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheStoreRemovesStaleSegments(t *testing.T) {
	c := NewCache(newTestFS(t), 16)
	require.NoError(t, c.Store("rec.wav", Manifest{Height: 1, Width: 10, Segments: 5}, segmentsOf(5)))
	require.NoError(t, c.Store("rec.wav", Manifest{Height: 1, Width: 10, Segments: 2}, segmentsOf(2)))

	assert.FileExists(t, filepath.Join(c.Dir(), "rec.wav_1.jpg"))
	assert.NoFileExists(t, filepath.Join(c.Dir(), "rec.wav_2.jpg"))
	assert.NoFileExists(t, filepath.Join(c.Dir(), "rec.wav_4.jpg"))

	err := c.Store("rec.wav", Manifest{Height: 1, Width: 10, Segments: 3}, segmentsOf(2))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(newTestFS(t), 16)
	require.NoError(t, c.Store("rec.wav", Manifest{Height: 1, Width: 10, Segments: 2}, segmentsOf(2)))
	require.NoError(t, c.Invalidate("rec.wav"))

	assert.NoFileExists(t, filepath.Join(c.Dir(), "rec.wav_dims"))
	assert.NoFileExists(t, filepath.Join(c.Dir(), "rec.wav_0.jpg"))

	// nothing cached is not an error
	require.NoError(t, c.Invalidate("rec.wav"))
}
