package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values, mirrored in config.yaml.
const (
	DefaultPlaybackTimeExpansion = 10.0
	DefaultClipBitDepth          = 16
	DefaultFFTWinLength          = 0.02
	DefaultFFTOverlap            = 0.75
	DefaultMinFreq               = 10000
	DefaultMaxFreq               = 120000
	DefaultSegments              = 16
	DefaultJPEGQuality           = 90
	DefaultMemoTTL               = 10 * time.Minute
	DefaultListen                = "127.0.0.1:8080"
)

// setDefaultConfig sets default values for every setting.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("audio.dir", "audio")
	viper.SetDefault("audio.annotationdir", "annotations")
	viper.SetDefault("audio.playbacktimeexpansion", DefaultPlaybackTimeExpansion)
	viper.SetDefault("audio.targetsamplerate", 0)
	viper.SetDefault("audio.scale", false)
	viper.SetDefault("audio.maxduration", 0.0)
	viper.SetDefault("audio.clipbitdepth", DefaultClipBitDepth)

	viper.SetDefault("spectrogram.datadir", "data")
	viper.SetDefault("spectrogram.fftwinlength", DefaultFFTWinLength)
	viper.SetDefault("spectrogram.fftoverlap", DefaultFFTOverlap)
	viper.SetDefault("spectrogram.minfreq", DefaultMinFreq)
	viper.SetDefault("spectrogram.maxfreq", DefaultMaxFreq)
	viper.SetDefault("spectrogram.specscale", "log")
	viper.SetDefault("spectrogram.denoisespecavg", true)
	viper.SetDefault("spectrogram.maxscalespec", false)
	viper.SetDefault("spectrogram.colormap", "inferno")
	viper.SetDefault("spectrogram.segments", DefaultSegments)
	viper.SetDefault("spectrogram.jpegquality", DefaultJPEGQuality)
	viper.SetDefault("spectrogram.memottl", DefaultMemoTTL)

	viper.SetDefault("prepare.workers", 0)
	viper.SetDefault("prepare.queuesize", 64)

	viper.SetDefault("webserver.listen", DefaultListen)
	viper.SetDefault("webserver.ratelimit", 20.0)
	viper.SetDefault("webserver.rateburst", 40)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", "logs/batprep.log")
	viper.SetDefault("logging.fileoutput.level", "info")
}
