package ulogger

import (
	"io"
	"os"

	"github.com/ordishs/gocore"
)

type Options struct {
	logLevel   string
	loggerType string
	writer     io.Writer
	skip       int
}

type Option func(*Options)

// DefaultOptions reads logLevel and logger_type from the gocore config, so a
// logger created without options follows settings.conf.
func DefaultOptions() *Options {
	logLevel, _ := gocore.Config().Get("logLevel", "INFO")
	loggerType, _ := gocore.Config().Get("logger_type", "zerolog")

	return &Options{
		logLevel:   logLevel,
		loggerType: loggerType,
		writer:     os.Stdout,
	}
}

func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

func WithLoggerType(loggerType string) Option {
	return func(o *Options) {
		o.loggerType = loggerType
	}
}

func WithSkipFrame(skip int) Option {
	return func(o *Options) {
		o.skip = skip
	}
}
