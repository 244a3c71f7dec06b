// Package logging configures the process-wide logrus logger and hands out
// component-scoped entries.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the global logger.
// format is "json" for machine-readable output; anything else gives text.
func Init(level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}

	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)
	logrus.SetLevel(lvl)
	return nil
}

// New returns an entry tagged with the component name.
func New(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// OrDiscard returns log, or an entry that drops everything when log is nil.
func OrDiscard(log *logrus.Entry) *logrus.Entry {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
