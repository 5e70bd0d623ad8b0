package logger

import (
	"fmt"
	"io"

	echo_log "github.com/labstack/gommon/log"
)

// EchoLoggerAdapter routes Echo's framework logging into a module logger.
//
// Usage:
//
//	e := echo.New()
//	e.Logger = logger.NewEchoLoggerAdapter(logger.Global().Module("echo"))
type EchoLoggerAdapter struct {
	logger Logger
	level  echo_log.Lvl
}

// NewEchoLoggerAdapter wraps l. A nil l uses the global "echo" module logger.
func NewEchoLoggerAdapter(l Logger) *EchoLoggerAdapter {
	if l == nil {
		l = Global().Module("echo")
	}
	return &EchoLoggerAdapter{logger: l, level: echo_log.INFO}
}

// Output returns io.Discard; output is owned by the central logger.
func (a *EchoLoggerAdapter) Output() io.Writer {
	return io.Discard
}

// SetOutput is a no-op.
func (a *EchoLoggerAdapter) SetOutput(_ io.Writer) {}

// Prefix returns "", module scoping replaces prefixes.
func (a *EchoLoggerAdapter) Prefix() string {
	return ""
}

// SetPrefix is a no-op.
func (a *EchoLoggerAdapter) SetPrefix(_ string) {}

// Level returns the level last set by Echo. Filtering is done by the
// module logger's configured level.
func (a *EchoLoggerAdapter) Level() echo_log.Lvl {
	return a.level
}

// SetLevel records lvl for Level.
func (a *EchoLoggerAdapter) SetLevel(lvl echo_log.Lvl) {
	a.level = lvl
}

// SetHeader is a no-op.
func (a *EchoLoggerAdapter) SetHeader(_ string) {}

func (a *EchoLoggerAdapter) Print(i ...any) {
	a.logger.Info(fmt.Sprint(i...))
}

func (a *EchoLoggerAdapter) Printf(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Printj(j echo_log.JSON) {
	a.logger.Info("echo", Any("data", j))
}

func (a *EchoLoggerAdapter) Debug(i ...any) {
	a.logger.Debug(fmt.Sprint(i...))
}

func (a *EchoLoggerAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Debugj(j echo_log.JSON) {
	a.logger.Debug("echo", Any("data", j))
}

func (a *EchoLoggerAdapter) Info(i ...any) {
	a.logger.Info(fmt.Sprint(i...))
}

func (a *EchoLoggerAdapter) Infof(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Infoj(j echo_log.JSON) {
	a.logger.Info("echo", Any("data", j))
}

func (a *EchoLoggerAdapter) Warn(i ...any) {
	a.logger.Warn(fmt.Sprint(i...))
}

func (a *EchoLoggerAdapter) Warnf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Warnj(j echo_log.JSON) {
	a.logger.Warn("echo", Any("data", j))
}

func (a *EchoLoggerAdapter) Error(i ...any) {
	a.logger.Error(fmt.Sprint(i...))
}

func (a *EchoLoggerAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Errorj(j echo_log.JSON) {
	a.logger.Error("echo", Any("data", j))
}

// Fatal logs at ERROR and panics so the server can shut down gracefully
// instead of exiting the process.
func (a *EchoLoggerAdapter) Fatal(i ...any) {
	msg := fmt.Sprint(i...)
	a.logger.Error(msg)
	panic("echo fatal: " + msg)
}

func (a *EchoLoggerAdapter) Fatalf(format string, args ...any) {
	a.Fatal(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Fatalj(j echo_log.JSON) {
	a.Fatal(fmt.Sprint(j))
}

func (a *EchoLoggerAdapter) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.logger.Error(msg)
	panic(msg)
}

func (a *EchoLoggerAdapter) Panicf(format string, args ...any) {
	a.Panic(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Panicj(j echo_log.JSON) {
	a.logger.Error("echo panic", Any("data", j))
	panic(j)
}
