package myaudio

import "github.com/tphakala/batprep/internal/logger"

// GetLogger returns the myaudio logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("myaudio")
}
