package conf

import "github.com/tphakala/batprep/internal/logger"

// GetLogger returns the config package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
