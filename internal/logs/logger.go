package logs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures the application logger.
type Options struct {
	Level  string // trace|debug|info|warning|error
	Format string // text|json
	Output io.Writer
}

// New builds a logrus logger from opts. Unknown levels fall back to info.
func New(opts Options) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Configuration marks an entry as a deployment defect rather than a runtime failure.
func Configuration(l logrus.FieldLogger) logrus.FieldLogger {
	return l.WithField("kind", "configuration")
}
