// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level   string // debug|info|warn|error, default info
	JSON    bool   // JSON formatter (otherwise text)
	LogFile string // non-empty enables rotating file output alongside stdout
}

// New builds a configured *logrus.Logger.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if opts.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	logger.SetOutput(out)

	return logger
}

// FromEnv builds a logger from LOG_LEVEL, LOG_JSON and LOG_FILE.
func FromEnv() *logrus.Logger {
	return New(Options{
		Level:   os.Getenv("LOG_LEVEL"),
		JSON:    os.Getenv("LOG_JSON") == "true",
		LogFile: os.Getenv("LOG_FILE"),
	})
}
