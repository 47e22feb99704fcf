package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

// MustConfigure applies c to the standard logger, exiting if c is invalid.
func MustConfigure(c Config) {
	if err := Configure(logrus.StandardLogger(), c); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error initializing logging: "+err.Error())
		os.Exit(1)
	}
}

// Configure sets the level, formatter, and output of logger according to c.
// If file logging is enabled, entries are also written to a rotated log file at the file level.
func Configure(logger *logrus.Logger, c Config) error {
	return configure(logger, c, os.Stdout)
}

func configure(logger *logrus.Logger, c Config, stdout io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	consoleLevel, _ := parseLogLevel(c.Console.Level)
	logger.SetFormatter(newFormatter(c.Console.Format))
	logger.SetOutput(stdout)
	logger.SetLevel(consoleLevel)

	if !c.File.Enabled {
		return nil
	}

	// Console and file may log at different levels, so both are written by hooks
	// and the logger itself passes everything either of them wants.
	fileLevel, _ := parseLogLevel(c.File.Level)
	logger.AddHook(&writerHook{
		writer:    stdout,
		formatter: newFormatter(c.Console.Format),
		levels:    levelsUpTo(consoleLevel),
	})
	logger.AddHook(&writerHook{
		writer: &lumberjack.Logger{
			Filename:   c.File.LogFile,
			MaxSize:    c.File.Rotation.MaxSizeMb,
			MaxBackups: c.File.Rotation.MaxBackups,
			MaxAge:     c.File.Rotation.MaxAgeDays,
			Compress:   c.File.Rotation.Compress,
		},
		formatter: newFormatter(c.File.Format),
		levels:    levelsUpTo(fileLevel),
	})
	logger.SetOutput(io.Discard)
	if fileLevel > consoleLevel {
		logger.SetLevel(fileLevel)
	}
	return nil
}

func newFormatter(format LogFormat) logrus.Formatter {
	switch format {
	case FormatJSON:
		return &logrus.JSONFormatter{TimestampFormat: RFC3339Milli}
	case FormatCommandLine:
		return &CommandLineFormatter{}
	case FormatColourful:
		return &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: RFC3339Milli}
	default:
		return &logrus.TextFormatter{DisableColors: true, FullTimestamp: true, TimestampFormat: RFC3339Milli}
	}
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	rv := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		if level <= max {
			rv = append(rv, level)
		}
	}
	return rv
}

// writerHook writes entries at the given levels to a writer of its own.
type writerHook struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(b)
	return err
}
