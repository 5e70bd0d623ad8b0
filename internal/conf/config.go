// Package conf loads and validates batprep settings.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is prepended to environment variable overrides, e.g. BATPREP_AUDIO_DIR.
const EnvPrefix = "BATPREP"

// AudioSettings controls how recordings are located, loaded and turned into clips.
type AudioSettings struct {
	Dir                   string  `yaml:"dir"`                   // directory holding the recordings
	AnnotationDir         string  `yaml:"annotationdir"`         // directory holding annotation JSON files
	PlaybackTimeExpansion float64 `yaml:"playbacktimeexpansion"` // slow-down factor used for listening
	TargetSampleRate      int     `yaml:"targetsamplerate"`      // resample to this true rate, 0 disables
	Scale                 bool    `yaml:"scale"`                 // remove DC and peak-normalize on load
	MaxDuration           float64 `yaml:"maxduration"`           // crop recordings to this many seconds, 0 disables
	ClipBitDepth          int     `yaml:"clipbitdepth"`          // PCM bit depth of the playback clip
}

// SpectrogramSettings controls spectrogram computation and the segment cache.
type SpectrogramSettings struct {
	DataDir        string        `yaml:"datadir"`        // where segment images and manifests are stored
	FFTWinLength   float64       `yaml:"fftwinlength"`   // window length in seconds
	FFTOverlap     float64       `yaml:"fftoverlap"`     // fraction of the window shared by consecutive frames
	MinFreq        int           `yaml:"minfreq"`        // lowest frequency kept, Hz
	MaxFreq        int           `yaml:"maxfreq"`        // highest frequency kept, Hz
	SpecScale      string        `yaml:"specscale"`      // log or none
	DenoiseSpecAvg bool          `yaml:"denoisespecavg"` // subtract per-frequency mean
	MaxScaleSpec   bool          `yaml:"maxscalespec"`   // divide by the maximum after denoising
	Colormap       string        `yaml:"colormap"`       // inferno or gray
	Segments       int           `yaml:"segments"`       // number of horizontal image tiles
	JPEGQuality    int           `yaml:"jpegquality"`    // 1-100
	MemoTTL        time.Duration `yaml:"memottl"`        // in-memory manifest memo lifetime
}

// PrepareSettings controls batch preparation.
type PrepareSettings struct {
	Workers   int `yaml:"workers"`   // concurrent recordings, 0 means number of CPUs
	QueueSize int `yaml:"queuesize"` // pending jobs before Submit blocks
}

// WebServerSettings controls the HTTP API.
type WebServerSettings struct {
	Listen    string  `yaml:"listen"`    // address to bind, host:port
	RateLimit float64 `yaml:"ratelimit"` // requests per second per client, 0 disables
	RateBurst int     `yaml:"rateburst"` // burst size for the rate limiter
}

// Settings is the root configuration.
type Settings struct {
	Debug       bool                 `yaml:"debug"`
	Audio       AudioSettings        `yaml:"audio"`
	Spectrogram SpectrogramSettings  `yaml:"spectrogram"`
	Prepare     PrepareSettings      `yaml:"prepare"`
	WebServer   WebServerSettings    `yaml:"webserver"`
	Logging     logger.LoggingConfig `yaml:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configFile (or the first config.yaml found in the default paths) plus
// BATPREP_* environment variables into Settings. When no config file exists a default
// one is written to the first default path.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settings, nil
}

// initViper registers defaults and environment overrides and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
		GetLogger().Debug("config loaded", logger.String("path", viper.ConfigFileUsed()))
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("config loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// createDefaultConfig writes the embedded default config into dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))

	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// MarshalYAMLBytes renders settings as YAML.
func (s *Settings) MarshalYAMLBytes() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

// SaveYAMLConfig writes settings to configPath via a temporary file and rename.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := settings.MarshalYAMLBytes()
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName) //nolint:errcheck // already renamed on success

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
