// Package annotation reads the per-recording JSON annotation files produced by
// the labeling GUI.
package annotation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

// Event is one labeled call inside a recording.
type Event struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	LowFreq    float64 `json:"low_freq"`
	HighFreq   float64 `json:"high_freq"`
	Class      string  `json:"class"`
	Event      string  `json:"event"`
	Individual string  `json:"individual"`
}

// Annotation describes one recording and its labeled events.
type Annotation struct {
	ID        string  `json:"id"`
	FileName  string  `json:"file_name"`
	TimeExp   float64 `json:"time_exp"`
	Duration  float64 `json:"duration,omitempty"`
	ClassName string  `json:"class_name,omitempty"`
	Annotated bool    `json:"annotated"`
	Issues    bool    `json:"issues"`
	Notes     string  `json:"notes,omitempty"`
	Events    []Event `json:"annotation"`

	// Source is the annotation file path, empty when parsed from a reader.
	Source string `json:"-"`
}

// GetLogger returns the annotation logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("annotation")
}

// Load parses the annotation file at path.
func Load(path string) (*Annotation, error) {
	f, err := os.Open(path) //nolint:gosec // caller-selected annotation file
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("annotation").
			Category(category).
			FileContext(path, 0).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only

	ann, err := Parse(f)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%s: %w", filepath.Base(path), err)).
			Component("annotation").
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Build()
	}

	ann.Source = path
	if ann.FileName == "" {
		ann.FileName = filepath.Base(path)
	}

	return ann, nil
}

// Parse decodes an annotation document. Numeric fields accept numbers or numeric strings.
func Parse(r io.Reader) (*Annotation, error) {
	obj, err := jason.NewObjectFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid annotation JSON: %w", err)
	}

	ann := &Annotation{
		ID:        optString(obj, "id"),
		FileName:  optString(obj, "file_name"),
		ClassName: optString(obj, "class_name"),
		Notes:     optString(obj, "notes"),
		Annotated: optBool(obj, "annotated"),
		Issues:    optBool(obj, "issues"),
	}

	if ann.FileName == "" {
		ann.FileName = ann.ID
	}

	if ann.TimeExp, err = optFloat(obj, "time_exp"); err != nil {
		return nil, err
	}
	if ann.TimeExp <= 0 {
		ann.TimeExp = 1
	}

	if ann.Duration, err = optFloat(obj, "duration"); err != nil {
		return nil, err
	}

	if v, verr := obj.GetValue("annotation"); verr == nil && v.Null() != nil {
		events, err := obj.GetObjectArray("annotation")
		if err != nil {
			return nil, fmt.Errorf("annotation must be an array of objects: %w", err)
		}
		ann.Events = make([]Event, 0, len(events))
		for i, ev := range events {
			event, err := parseEvent(ev)
			if err != nil {
				return nil, fmt.Errorf("annotation[%d]: %w", i, err)
			}
			ann.Events = append(ann.Events, event)
		}
	}

	return ann, nil
}

func parseEvent(obj *jason.Object) (Event, error) {
	var ev Event
	var err error

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"start_time", &ev.StartTime},
		{"end_time", &ev.EndTime},
		{"low_freq", &ev.LowFreq},
		{"high_freq", &ev.HighFreq},
	} {
		if *f.dst, err = optFloat(obj, f.key); err != nil {
			return Event{}, err
		}
	}

	ev.Class = optString(obj, "class")
	ev.Event = optString(obj, "event")
	ev.Individual = optString(obj, "individual")

	return ev, nil
}

// optString returns the value of key as a string. Numbers are formatted, missing
// or null values give "".
func optString(obj *jason.Object, key string) string {
	v, err := obj.GetValue(key)
	if err != nil {
		return ""
	}
	if s, err := v.String(); err == nil {
		return s
	}
	if n, err := v.Number(); err == nil {
		return n.String()
	}
	return ""
}

func optBool(obj *jason.Object, key string) bool {
	v, err := obj.GetValue(key)
	if err != nil {
		return false
	}
	if b, err := v.Boolean(); err == nil {
		return b
	}
	if s, err := v.String(); err == nil {
		b, _ := strconv.ParseBool(s)
		return b
	}
	return false
}

// optFloat returns key as a float64, accepting JSON numbers and numeric strings.
// Missing, null and empty-string values give 0.
func optFloat(obj *jason.Object, key string) (float64, error) {
	v, err := obj.GetValue(key)
	if err != nil {
		return 0, nil
	}
	if v.Null() == nil {
		return 0, nil
	}
	if f, err := v.Float64(); err == nil {
		return f, nil
	}
	if s, err := v.String(); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return 0, fmt.Errorf("field %q: %q is not a number", key, s)
		}
		return f, nil
	}
	return 0, fmt.Errorf("field %q has unsupported type", key)
}

// AudioPath returns the recording path for this annotation. The ".json" suffix
// is removed from the file name; the name is joined with audioDir only when
// that directory exists.
func (a *Annotation) AudioPath(audioDir string) string {
	name := strings.TrimSuffix(a.FileName, ".json")
	if audioDir == "" {
		return name
	}
	if info, err := os.Stat(audioDir); err != nil || !info.IsDir() {
		return name
	}
	return filepath.Join(audioDir, name)
}

// Reference returns the cache key for this recording's spectrogram.
func (a *Annotation) Reference() string {
	return filepath.Base(strings.TrimSuffix(a.FileName, ".json"))
}

// List returns the sorted *.json files directly inside dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("annotation").
			Category(category).
			Context("dir", dir).
			Build()
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)

	GetLogger().Debug("annotations listed", logger.String("dir", dir), logger.Int("count", len(paths)))

	return paths, nil
}

// LoadDir loads every annotation in dir. Files that fail to parse are skipped
// and reported through the returned joined error.
func LoadDir(dir string) ([]*Annotation, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}

	anns := make([]*Annotation, 0, len(paths))
	var errs []error
	for _, p := range paths {
		ann, err := Load(p)
		if err != nil {
			GetLogger().Warn("skipping unreadable annotation", logger.String("path", p), logger.Error(err))
			errs = append(errs, err)
			continue
		}
		anns = append(anns, ann)
	}

	return anns, errors.Join(errs...)
}
