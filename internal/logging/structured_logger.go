package logging

import (
	"github.com/sirupsen/logrus"
)

// StructuredLogger routes messages through a logrus logger so deployments
// that aggregate logs get leveled, structured output instead of raw stderr.
// Safe for concurrent use by multiple goroutines.
type StructuredLogger struct {
	log *logrus.Logger
}

// NewStructuredLogger creates a StructuredLogger backed by the given logrus
// logger. If log is nil, the logrus standard logger is used.
func NewStructuredLogger(log *logrus.Logger) *StructuredLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StructuredLogger{log: log}
}

// Verbose logs detailed diagnostic information at debug level.
func (l *StructuredLogger) Verbose(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

// Info logs informational messages at info level.
func (l *StructuredLogger) Info(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

// Error logs error messages at error level.
func (l *StructuredLogger) Error(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}
