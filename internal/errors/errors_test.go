package errors

import (
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	ClearErrorHooks()

	ee := New(fmt.Errorf("something odd")).Build()

	assert.Equal(t, "something odd", ee.Error())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.False(t, ee.GetTimestamp().IsZero())
}

func TestBuilderContext(t *testing.T) {
	ee := Newf("bad width %d", 0).
		Component("spectrogram").
		Category(CategoryValidation).
		Context("width", 0).
		FileContext("/data/rec.wav", 2048).
		Build()

	assert.Equal(t, "spectrogram", ee.GetComponent())
	assert.True(t, IsValidation(ee))

	ctx := ee.GetContext()
	assert.Equal(t, 0, ctx["width"])
	assert.Equal(t, "wav", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])

	// returned map is a copy
	ctx["width"] = 99
	assert.Equal(t, 0, ee.GetContext()["width"])
}

func TestBuilderTiming(t *testing.T) {
	ee := Newf("lock wait aborted").
		Component("spectrogram").
		Category(CategoryCancellation).
		Timing("acquire_lock", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "acquire_lock", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
}

func TestLookupComponent(t *testing.T) {
	assert.Equal(t, "spectrogram", lookupComponent("github.com/tphakala/batprep/internal/spectrogram.(*Generator).compute"))
	assert.Equal(t, "api", lookupComponent("github.com/tphakala/batprep/internal/api.(*Server).getAudio"))
	assert.Equal(t, ComponentUnknown, lookupComponent("main.main"))
}

func TestUnwrapAndIs(t *testing.T) {
	wrapped := New(fs.ErrNotExist).Category(CategoryNotFound).Build()

	assert.True(t, Is(wrapped, fs.ErrNotExist))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, fs.ErrNotExist, Unwrap(wrapped))

	outer := fmt.Errorf("loading: %w", wrapped)
	assert.True(t, IsNotFound(outer))
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"not found message", fmt.Errorf("open x.wav: no such file or directory"), "", CategoryNotFound},
		{"unsupported", fmt.Errorf("unsupported bit depth: 12"), "", CategoryValidation},
		{"read failure", fmt.Errorf("short read"), "", CategoryFileIO},
		{"audio component", fmt.Errorf("boom"), "myaudio", CategoryAudio},
		{"spectrogram component", fmt.Errorf("boom"), "spectrogram", CategorySpectrogram},
		{"nested enhanced", New(fmt.Errorf("x")).Category(CategoryCache).Build(), "", CategoryCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestErrorHooks(t *testing.T) {
	ClearErrorHooks()
	t.Cleanup(ClearErrorHooks)

	var seen []ErrorCategory
	AddErrorHook(func(ee *EnhancedError) {
		seen = append(seen, ee.Category)
	})

	_ = New(fmt.Errorf("a")).Category(CategoryAudio).Build()
	_ = New(fmt.Errorf("b")).Category(CategoryCache).Build()

	require.Len(t, seen, 2)
	assert.Equal(t, []ErrorCategory{CategoryAudio, CategoryCache}, seen)
}

func TestCategorizeFileSize(t *testing.T) {
	assert.Equal(t, "tiny", categorizeFileSize(10))
	assert.Equal(t, "medium", categorizeFileSize(5*1024*1024))
	assert.Equal(t, "very-large", categorizeFileSize(200*1024*1024))
}
