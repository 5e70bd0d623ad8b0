// Package app assembles the batprep components from settings.
package app

import (
	"github.com/tphakala/batprep/internal/clip"
	"github.com/tphakala/batprep/internal/conf"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/observability"
	"github.com/tphakala/batprep/internal/prepare"
	"github.com/tphakala/batprep/internal/securefs"
	"github.com/tphakala/batprep/internal/spectrogram"
)

// App holds the wired components shared by the commands.
type App struct {
	Settings  *conf.Settings
	Metrics   *observability.Metrics
	Data      *securefs.SecureFS
	Generator *spectrogram.Generator
	Encoder   *clip.Encoder
	Service   *prepare.Service

	central *logger.CentralLogger
}

// InitLogging replaces the global logger with one configured from settings.
// The returned logger must be closed to flush file output.
func InitLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}
	logger.SetGlobal(cl)
	return cl, nil
}

// New builds every component from settings.
func New(settings *conf.Settings) (*App, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	m.InstallErrorHook()

	sfs, err := securefs.New(settings.Spectrogram.DataDir)
	if err != nil {
		return nil, err
	}

	gen, err := spectrogram.NewGenerator(
		spectrogram.ParamsFromSettings(&settings.Spectrogram),
		sfs,
		spectrogram.GetLogger(),
		spectrogram.WithRecorder(m.Spectrogram),
		spectrogram.WithMemoTTL(settings.Spectrogram.MemoTTL),
	)
	if err != nil {
		_ = sfs.Close()
		return nil, err
	}

	enc := clip.NewEncoder(&settings.Audio, m.Audio)

	svc, err := prepare.NewService(settings.Audio.AnnotationDir, settings.Audio.Dir, enc, gen, m.Spectrogram)
	if err != nil {
		_ = sfs.Close()
		return nil, err
	}

	logger.Global().Module("app").Debug("components ready",
		logger.String("data_dir", sfs.BaseDir()),
		logger.String("audio_dir", settings.Audio.Dir),
		logger.String("annotation_dir", settings.Audio.AnnotationDir))

	return &App{
		Settings:  settings,
		Metrics:   m,
		Data:      sfs,
		Generator: gen,
		Encoder:   enc,
		Service:   svc,
	}, nil
}

// WithLogging attaches a central logger so Close flushes and closes it.
func (a *App) WithLogging(cl *logger.CentralLogger) *App {
	a.central = cl
	return a
}

// Close releases the data directory and flushes logs.
func (a *App) Close() error {
	errors.ClearErrorHooks()
	var errs []error
	if a.Data != nil {
		errs = append(errs, a.Data.Close())
	}
	if a.central != nil {
		errs = append(errs, a.central.Close())
	}
	return errors.Join(errs...)
}
