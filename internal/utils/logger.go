package utils

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Entry
)

// GetLogger returns the shared structured logger. Every entry carries the
// process name so web and worker output can be told apart when both land
// in the same stream.
func GetLogger() *logrus.Entry {
	loggerOnce.Do(func() {
		base := logrus.New()
		base.SetOutput(os.Stdout)
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})

		if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			base.SetLevel(level)
		}

		logger = base.WithField("process", filepath.Base(os.Args[0]))
	})

	return logger
}
