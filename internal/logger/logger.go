package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the JSON logger shared by every component. Unknown levels fall back to info with a
// warning.
func New(level string) *logrus.Logger {
	return newWithOutput(level, os.Stdout)
}

func newWithOutput(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("configured", level).Warn("unknown log level, using info")
		return log
	}
	log.SetLevel(lvl)
	return log
}
