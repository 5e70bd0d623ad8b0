// Package metrics provides constants used across metric definitions.
package metrics

// Operation names passed to Recorder implementations.
const (
	// OpCacheLookup is a spectrogram segment cache lookup.
	OpCacheLookup = "cache_lookup"
	// OpSpectrogramGenerate covers a full spectrogram computation, cache miss to stored segments.
	OpSpectrogramGenerate = "spectrogram_generate"
	// OpSTFT is the short-time Fourier transform stage.
	OpSTFT = "stft"
	// OpRender is normalization and colormapping.
	OpRender = "render"
	// OpSegmentEncode is JPEG encoding and writing of segments.
	OpSegmentEncode = "segment_encode"
	// OpAudioLoad is reading and decoding an audio file.
	OpAudioLoad = "audio_load"
	// OpClipEncode is WAV plus base64 encoding of a playback clip.
	OpClipEncode = "clip_encode"
	// OpPrepare is preparing one recording for the labeling GUI.
	OpPrepare = "prepare"
)

// Status values recorded with operations.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusHit     = "hit"
	StatusMiss    = "miss"
	StatusMemo    = "memo"
	StatusSkipped = "skipped"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100B is the starting bucket for 100 byte histograms (100B to ~100MB range).
	BucketStart100B = 100.0
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~1GB range).
	BucketStart1KB = 1024.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount20 defines 20 exponential buckets.
	BucketCount20 = 20
)
