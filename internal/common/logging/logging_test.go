package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate func(c *Config)
		valid  bool
	}{
		"default": {mutate: func(c *Config) {}, valid: true},
		"upper case level": {
			mutate: func(c *Config) { c.Console.Level = "DEBUG" },
			valid:  true,
		},
		"unknown level": {
			mutate: func(c *Config) { c.Console.Level = "loud" },
			valid:  false,
		},
		"unknown format": {
			mutate: func(c *Config) { c.Console.Format = "xml" },
			valid:  false,
		},
		"file without path": {
			mutate: func(c *Config) {
				c.File.Enabled = true
				c.File.Level = "info"
				c.File.Format = FormatJSON
				c.File.Rotation.MaxSizeMb = 1
			},
			valid: false,
		},
		"file without max size": {
			mutate: func(c *Config) {
				c.File.Enabled = true
				c.File.Level = "info"
				c.File.Format = FormatJSON
				c.File.LogFile = "proxgrad.log"
			},
			valid: false,
		},
		"invalid file ignored if disabled": {
			mutate: func(c *Config) { c.File.Format = "xml" },
			valid:  true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mutate(&c)
			if tc.valid {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

func TestConfigure_Console(t *testing.T) {
	var out bytes.Buffer
	logger := logrus.New()
	c := DefaultConfig()
	c.Console.Level = "warn"
	c.Console.Format = FormatCommandLine
	require.NoError(t, configure(logger, c, &out))

	logger.Info("dropped")
	logger.WithField("case", 3).Warn("kept")
	assert.Equal(t, "kept case=3\n", out.String())
}

func TestConfigure_File(t *testing.T) {
	var out bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "proxgrad.log")
	logger := logrus.New()
	c := DefaultConfig()
	c.Console.Level = "info"
	c.Console.Format = FormatCommandLine
	c.File.Enabled = true
	c.File.Level = "debug"
	c.File.Format = FormatJSON
	c.File.LogFile = logFile
	c.File.Rotation.MaxSizeMb = 1
	require.NoError(t, configure(logger, c, &out))

	logger.Debug("file only")
	logger.Info("both")
	assert.Equal(t, "both\n", out.String())

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"msg":"file only"`)
	assert.Contains(t, string(contents), `"msg":"both"`)
}

func TestConfigure_Invalid(t *testing.T) {
	c := DefaultConfig()
	c.Console.Level = "loud"
	assert.Error(t, Configure(logrus.New(), c))
}

func TestExtractStack(t *testing.T) {
	assert.Nil(t, ExtractStack(nil))
	assert.Nil(t, ExtractStack(os.ErrNotExist))
	assert.NotNil(t, ExtractStack(errors.New("boom")))
	assert.NotNil(t, ExtractStack(errors.WithMessage(errors.New("boom"), "wrapped")))
}

func TestWithStacktrace(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	withStack := WithStacktrace(entry, errors.New("boom"))
	assert.Contains(t, withStack.Data, Stacktrace)
	assert.Contains(t, withStack.Data, logrus.ErrorKey)

	withoutStack := WithStacktrace(entry, os.ErrNotExist)
	assert.NotContains(t, withoutStack.Data, Stacktrace)
}

func TestTopmostWithCause(t *testing.T) {
	root := os.ErrNotExist
	withStack := errors.WithStack(root)
	wrapped := errors.WithMessage(withStack, "opening config")
	assert.Equal(t, withStack, TopmostWithCause(wrapped))
	assert.Equal(t, withStack, TopmostWithCause(withStack))
	assert.Equal(t, root, TopmostWithCause(root))
	assert.Nil(t, TopmostWithCause(nil))
}

func TestPrometheusHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := NewPrometheusHook(reg)
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	logger.AddHook(hook)

	logger.Info("a")
	logger.Info("b")
	logger.Error("c")
	logger.Debug("below level")
	assert.Equal(t, 2.0, testutil.ToFloat64(hook.counter.WithLabelValues("info")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.counter.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(hook.counter.WithLabelValues("debug")))
}
