package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// log is created once and reconfigured in place, so loggers handed out by
// Get stay valid and concurrent callers never see it swapped.
var log = newDefault()

// newDefault is the logger a library caller gets without configuring
// logging: quiet below panic.
func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(textFormatter())
	l.SetLevel(logrus.PanicLevel)
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	PanicLevel LogLevel = "panic"
	FatalLevel LogLevel = "fatal"
)

// Format selects the log line encoding
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

// Config describes how the process logger is built
type Config struct {
	Level  LogLevel
	Format Format
	Output io.Writer
}

// Init initializes the logger with the specified level, text format on stdout
func Init(level LogLevel) {
	Configure(Config{Level: level})
}

// Configure applies cfg to the process logger
func Configure(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	switch Format(strings.ToLower(string(cfg.Format))) {
	case JSONFormat:
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		log.SetFormatter(textFormatter())
	}

	log.SetLevel(ParseLevel(cfg.Level))
}

// ParseLevel maps a LogLevel to logrus, falling back to info
func ParseLevel(level LogLevel) logrus.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case PanicLevel:
		return logrus.PanicLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Get returns the logger instance. A library caller that never initialized
// logging gets a logger that stays quiet below panic.
func Get() *logrus.Logger {
	return log
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	Get().Debugf(format, args...)
}

// Info logs an info message
func Info(args ...interface{}) {
	Get().Info(args...)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	Get().Warnf(format, args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	Get().Errorf(format, args...)
}

// WithField returns a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

// WithFields returns a logger with multiple fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}
