package obs

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	})
	return logger
}

// ConfigureLogger applies the level and format from configuration.
func ConfigureLogger(level, format string) {
	l := Logger()
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warning", "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// BestEffort runs fn for its side effect only. A failure is reported through
// the diagnostics logger and never reaches the caller, so broken auxiliary
// infrastructure cannot block a user-facing operation.
func BestEffort(name string, fn func() error) {
	if err := fn(); err != nil {
		Logger().WithField("op", name).WithError(err).Warn("non-critical side effect failed")
	}
}
