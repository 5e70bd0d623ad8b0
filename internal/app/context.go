package app

import (
	"github.com/tphakala/batprep/internal/conf"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
)

// Context carries what the root command initialized to its subcommands.
type Context struct {
	Settings *conf.Settings
	Logging  *logger.CentralLogger
}

// Open builds the components for a command. Closing the returned App also
// flushes the command's logs.
func (c *Context) Open() (*App, error) {
	if c == nil || c.Settings == nil {
		return nil, errors.Newf("settings not loaded").
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "open").
			Build()
	}
	a, err := New(c.Settings)
	if err != nil {
		return nil, err
	}
	return a.WithLogging(c.Logging), nil
}
