package logging

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type LogFormat string

const (
	FormatText      LogFormat = "text"
	FormatColourful LogFormat = "colourful"
	FormatJSON      LogFormat = "json"
	// Message only, for command-line output.
	FormatCommandLine LogFormat = "cli"
)

var validLogFormats = map[LogFormat]bool{
	FormatText:        true,
	FormatColourful:   true,
	FormatJSON:        true,
	FormatCommandLine: true,
}

// Config defines logging configuration.
type Config struct {
	// Defines configuration for console logging on stdout
	Console struct {
		// Log level, e.g. info, error etc
		Level string
		// One of text, colourful, json, or cli
		Format LogFormat
	}
	// Defines configuration for file logging
	File struct {
		Enabled bool
		Level   string
		// One of text or json
		Format LogFormat
		// The location of the logfile on disk
		LogFile string
		// Log rotation options
		Rotation struct {
			// Maximum size in megabytes of the log file before it gets rotated
			MaxSizeMb int
			// Maximum number of old log files to retain
			MaxBackups int
			// Maximum number of days to retain old log files
			MaxAgeDays int
			// Whether to compress rotated log files
			Compress bool
		}
	}
}

// DefaultConfig logs at info level in text format to stdout only.
func DefaultConfig() Config {
	c := Config{}
	c.Console.Level = "info"
	c.Console.Format = FormatText
	return c
}

func (c Config) Validate() error {
	if _, err := parseLogLevel(c.Console.Level); err != nil {
		return err
	}
	if err := validateLogFormat(c.Console.Format); err != nil {
		return err
	}
	if !c.File.Enabled {
		return nil
	}
	if _, err := parseLogLevel(c.File.Level); err != nil {
		return err
	}
	if err := validateLogFormat(c.File.Format); err != nil {
		return err
	}
	if c.File.LogFile == "" {
		return errors.New("file.logFile must be set if file logging is enabled")
	}
	rotation := c.File.Rotation
	if rotation.MaxSizeMb <= 0 {
		return errors.New("rotation.maxSizeMb must be greater than zero")
	}
	if rotation.MaxBackups < 0 {
		return errors.New("rotation.maxBackups must not be negative")
	}
	if rotation.MaxAgeDays < 0 {
		return errors.New("rotation.maxAgeDays must not be negative")
	}
	return nil
}

func validateLogFormat(f LogFormat) error {
	if !validLogFormats[f] {
		valid := maps.Keys(validLogFormats)
		slices.Sort(valid)
		return errors.Errorf("unknown log format: %s.  Valid formats are %s", f, valid)
	}
	return nil
}

func parseLogLevel(level string) (logrus.Level, error) {
	l, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel, errors.Errorf("unknown level: %s", level)
	}
	return l, nil
}
