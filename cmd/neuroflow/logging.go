package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// configureLogging sends logrus output to stderr, keeping stdout for the
// results table. level comes from -loglevel, falling back to
// NEUROFLOW_LOG_LEVEL and then to info.
func configureLogging(level string) error {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	if level == "" {
		level = os.Getenv("NEUROFLOW_LOG_LEVEL")
	}
	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)

	return nil
}
