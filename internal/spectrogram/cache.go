package spectrogram

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/securefs"
)

const cacheFilePerm = 0o644

// Manifest records the dimensions of a cached spectrogram.
// On disk it is the text "<height> <width> <segments>"; older manifests carry
// only height and width and imply the configured segment count.
type Manifest struct {
	Height   int
	Width    int
	Segments int
}

// String returns the on-disk form.
func (m Manifest) String() string {
	return fmt.Sprintf("%d %d %d", m.Height, m.Width, m.Segments)
}

// ParseManifest parses the on-disk form. defaultSegments is used for the
// legacy two-field form.
func ParseManifest(data []byte, defaultSegments int) (Manifest, error) {
	fields := strings.Fields(string(data))
	if len(fields) != 2 && len(fields) != 3 {
		return Manifest{}, manifestError(fmt.Sprintf("expected 2 or 3 fields, got %d", len(fields)))
	}

	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v <= 0 {
			return Manifest{}, manifestError(fmt.Sprintf("field %d is not a positive integer: %q", i, f))
		}
		values[i] = v
	}

	m := Manifest{Height: values[0], Width: values[1], Segments: defaultSegments}
	if len(values) == 3 {
		m.Segments = values[2]
	}
	// legacy manifests for images narrower than the segment count
	m.Segments = len(SegmentWidths(m.Width, m.Segments))
	return m, nil
}

func manifestError(problem string) error {
	return errors.Newf("invalid spectrogram manifest: %s", problem).
		Component("spectrogram").
		Category(errors.CategoryFileParsing).
		Context("operation", "parse_manifest").
		Build()
}

// ReferenceName reduces a reference, usually an audio file path, to the cache
// key: its base name.
func ReferenceName(reference string) (string, error) {
	name := filepath.Base(reference)
	if reference == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", errors.Newf("invalid spectrogram reference %q", reference).
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Context("operation", "reference_name").
			Build()
	}
	return name, nil
}

// ManifestName returns the manifest file name for a reference.
func ManifestName(ref string) string { return ref + "_dims" }

// SegmentName returns the file name of segment i for a reference.
func SegmentName(ref string, i int) string { return fmt.Sprintf("%s_%d.jpg", ref, i) }

// LockName returns the cross-process lock file name for a reference.
func LockName(ref string) string { return ref + ".lock" }

// Cache stores spectrogram segments and manifests in a sandboxed directory.
type Cache struct {
	sfs             *securefs.SecureFS
	defaultSegments int
	logger          logger.Logger
}

// NewCache returns a cache rooted at the sandbox base directory.
func NewCache(sfs *securefs.SecureFS, defaultSegments int) *Cache {
	return &Cache{
		sfs:             sfs,
		defaultSegments: max(defaultSegments, 1),
		logger:          GetLogger().Module("cache"),
	}
}

// Dir returns the absolute cache directory.
func (c *Cache) Dir() string {
	return c.sfs.BaseDir()
}

// SegmentPaths returns the absolute paths of a reference's n segments.
func (c *Cache) SegmentPaths(ref string, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(c.Dir(), SegmentName(ref, i))
	}
	return paths
}

// Lookup returns the manifest of a cached reference. It reports a hit only
// when the manifest parses and every segment it lists exists.
func (c *Cache) Lookup(ref string) (Manifest, bool, error) {
	data, err := c.sfs.ReadFile(ManifestName(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, c.ioError(err, ref, "read_manifest")
	}

	m, err := ParseManifest(data, c.defaultSegments)
	if err != nil {
		c.logger.Warn("Ignoring unreadable spectrogram manifest",
			logger.String("reference", ref),
			logger.Error(err))
		return Manifest{}, false, nil
	}

	ok, err := c.SegmentsExist(ref, m.Segments)
	if err != nil || !ok {
		return Manifest{}, false, err
	}
	return m, true, nil
}

// SegmentsExist reports whether all n segments of a reference are on disk.
func (c *Cache) SegmentsExist(ref string, n int) (bool, error) {
	for i := range n {
		exists, err := c.sfs.Exists(SegmentName(ref, i))
		if err != nil {
			return false, c.ioError(err, ref, "stat_segment")
		}
		if !exists {
			c.logger.Debug("Cached spectrogram is missing a segment",
				logger.String("reference", ref),
				logger.Int("segment", i))
			return false, nil
		}
	}
	return true, nil
}

// Store writes encoded segments, then the manifest. Any previous manifest is
// removed first, so a concurrent Lookup never pairs an old manifest with
// partially written new segments.
func (c *Cache) Store(ref string, m Manifest, segments [][]byte) error {
	if len(segments) != m.Segments {
		return errors.Newf("manifest lists %d segments, got %d", m.Segments, len(segments)).
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Context("operation", "store_segments").
			Context("reference", ref).
			Build()
	}

	previous := 0
	if data, err := c.sfs.ReadFile(ManifestName(ref)); err == nil {
		if old, err := ParseManifest(data, c.defaultSegments); err == nil {
			previous = old.Segments
		}
	}
	if err := c.removeIfExists(ManifestName(ref)); err != nil {
		return c.ioError(err, ref, "remove_manifest")
	}

	for i, data := range segments {
		if err := c.sfs.WriteFileAtomic(SegmentName(ref, i), data, cacheFilePerm); err != nil {
			return c.ioError(err, ref, "write_segment")
		}
	}
	for i := len(segments); i < previous; i++ {
		if err := c.removeIfExists(SegmentName(ref, i)); err != nil {
			return c.ioError(err, ref, "remove_stale_segment")
		}
	}

	if err := c.sfs.WriteFileAtomic(ManifestName(ref), []byte(m.String()), cacheFilePerm); err != nil {
		return c.ioError(err, ref, "write_manifest")
	}
	return nil
}

// Invalidate removes a reference's manifest and segments.
func (c *Cache) Invalidate(ref string) error {
	data, readErr := c.sfs.ReadFile(ManifestName(ref))
	if err := c.removeIfExists(ManifestName(ref)); err != nil {
		return c.ioError(err, ref, "remove_manifest")
	}
	if readErr != nil {
		return nil
	}

	m, err := ParseManifest(data, c.defaultSegments)
	if err != nil {
		return nil
	}
	for i := range m.Segments {
		if err := c.removeIfExists(SegmentName(ref, i)); err != nil {
			return c.ioError(err, ref, "remove_segment")
		}
	}
	return nil
}

func (c *Cache) removeIfExists(name string) error {
	if err := c.sfs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Cache) ioError(err error, ref, operation string) error {
	return errors.New(err).
		Component("spectrogram").
		Category(errors.CategoryCache).
		Context("operation", operation).
		Context("reference", ref).
		Context("cache_dir", c.Dir()).
		Build()
}
