package api

import (
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/batprep/internal/prepare"
	"github.com/tphakala/batprep/internal/spectrogram"
)

// AudioResponse is the playback clip of a recording.
type AudioResponse struct {
	ID                    string  `json:"id"`
	SampleRate            int     `json:"sample_rate"`   // true sample rate
	PlaybackRate          int     `json:"playback_rate"` // rate in the WAV header
	PlaybackTimeExpansion float64 `json:"playback_time_expansion"`
	Duration              float64 `json:"duration"` // seconds, true time
	WAV                   string  `json:"wav"`      // base64
}

// SpectrogramResponse lists the segment images of a recording, left to right.
type SpectrogramResponse struct {
	ID       string   `json:"id"`
	Height   int      `json:"height"`
	Width    int      `json:"width"`
	Cached   bool     `json:"cached"`
	Segments []string `json:"segments"`
}

func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
	})
}

func (s *Server) listRecordings(c echo.Context) error {
	entries, err := s.service.List()
	if err != nil {
		return s.handleServiceError(c, err, "Failed to list recordings")
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) getAudio(c echo.Context) error {
	id := c.Param("id")
	if err := prepare.ValidateID(id); err != nil {
		return s.HandleError(c, err, "Invalid recording id", http.StatusBadRequest)
	}

	res, err := s.service.Audio(c.Request().Context(), id)
	if err != nil {
		return s.handleServiceError(c, err, "Failed to load recording audio")
	}

	return c.JSON(http.StatusOK, AudioResponse{
		ID:                    id,
		SampleRate:            res.SampleRate,
		PlaybackRate:          res.PlaybackRate,
		PlaybackTimeExpansion: res.PlaybackTimeExpansion,
		Duration:              res.Duration,
		WAV:                   res.WAVBase64,
	})
}

func (s *Server) getSpectrogram(c echo.Context) error {
	id := c.Param("id")
	if err := prepare.ValidateID(id); err != nil {
		return s.HandleError(c, err, "Invalid recording id", http.StatusBadRequest)
	}

	res, err := s.service.Spectrogram(c.Request().Context(), id)
	if err != nil {
		return s.handleServiceError(c, err, "Failed to compute spectrogram")
	}

	return c.JSON(http.StatusOK, SpectrogramResponse{
		ID:       id,
		Height:   res.Height,
		Width:    res.Width,
		Cached:   res.Cached,
		Segments: segmentURLs(res),
	})
}

func (s *Server) serveData(c echo.Context) error {
	name, err := url.PathUnescape(c.Param("file"))
	if err != nil {
		return s.HandleError(c, err, "Invalid file name", http.StatusBadRequest)
	}
	return s.data.ServeRelativeFile(c, name)
}

// segmentURLs maps segment files to their /data URLs.
func segmentURLs(res *spectrogram.ImageResult) []string {
	urls := make([]string, len(res.Paths))
	for i, p := range res.Paths {
		urls[i] = "/data/" + url.PathEscape(filepath.Base(p))
	}
	return urls
}
