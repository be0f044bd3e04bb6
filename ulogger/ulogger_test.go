package ulogger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/ordishs/gocore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level           string
		expectedOutputs map[string]bool
	}{
		{
			level: "DEBUG",
			expectedOutputs: map[string]bool{
				"DEBUG": true,
				"INFO":  true,
				"WARN":  true,
				"ERROR": true,
			},
		},
		{
			level: "INFO",
			expectedOutputs: map[string]bool{
				"DEBUG": false,
				"INFO":  true,
				"WARN":  true,
				"ERROR": true,
			},
		},
		{
			level: "WARN",
			expectedOutputs: map[string]bool{
				"DEBUG": false,
				"INFO":  false,
				"WARN":  true,
				"ERROR": true,
			},
		},
		{
			level: "ERROR",
			expectedOutputs: map[string]bool{
				"DEBUG": false,
				"INFO":  false,
				"WARN":  false,
				"ERROR": true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := ulogger.New("test-service",
				ulogger.WithLevel(tt.level),
				ulogger.WithWriter(&buf),
				ulogger.WithLoggerType("zerolog"),
			)

			logger.Debugf("DEBUG message")
			logger.Infof("INFO message")
			logger.Warnf("WARN message")
			logger.Errorf("ERROR message")

			output := buf.String()

			for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
				assert.Equal(t, tt.expectedOutputs[level], strings.Contains(output, level+" message"), "level %s", level)
			}
		})
	}
}

func TestZeroLoggerLogLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.NewZeroLogger("xbridge", ulogger.WithLevel("DEBUG"), ulogger.WithWriter(&buf))
	assert.Equal(t, int(gocore.DEBUG), logger.LogLevel())

	logger.SetLogLevel("error")
	assert.Equal(t, int(gocore.ERROR), logger.LogLevel())

	logger.SetLogLevel("nonsense")
	assert.Equal(t, int(gocore.INFO), logger.LogLevel())
}

func TestZeroLoggerNewInheritsParent(t *testing.T) {
	var buf bytes.Buffer

	parent := ulogger.New("parent", ulogger.WithLevel("WARN"), ulogger.WithWriter(&buf), ulogger.WithLoggerType("zerolog"))
	child := parent.New("child")

	child.Infof("hidden line")
	child.Warnf("visible line")

	output := buf.String()
	assert.NotContains(t, output, "hidden line")
	assert.Contains(t, output, "visible line")
	assert.Contains(t, output, "child")

	dup := parent.Duplicate(ulogger.WithLevel("DEBUG"))
	dup.Debugf("debug from duplicate")
	assert.Contains(t, buf.String(), "debug from duplicate")
}

func TestGoCoreLogger(t *testing.T) {
	logger := ulogger.NewGoCoreLogger("", ulogger.WithLevel("DEBUG"))
	require.NotNil(t, logger)

	var _ ulogger.Logger = logger

	child := logger.New("child")
	require.NotNil(t, child)

	dup := logger.Duplicate(ulogger.WithSkipFrame(2))
	require.NotNil(t, dup)

	// SetLogLevel is a noop for GoCoreLogger
	logger.SetLogLevel("ERROR")
}

func TestTestLogger(t *testing.T) {
	var logger ulogger.Logger = ulogger.TestLogger{}

	logger.Debugf("x %d", 1)
	logger.Infof("x %d", 1)
	logger.Warnf("x %d", 1)
	logger.Errorf("x %d", 1)
	logger.Fatalf("x %d", 1)

	assert.Equal(t, 0, logger.LogLevel())
	assert.Equal(t, logger, logger.New("child"))
	assert.Equal(t, logger, logger.Duplicate())
}

func TestErrorTestLogger(t *testing.T) {
	logger := ulogger.NewErrorTestLogger(t)

	logger.Infof("ignored")
	logger.Warnf("ignored")
	assert.Empty(t, logger.Errors())

	logger.Errorf("swap %s failed", "abc")
	logger.Shutdown()
	logger.Fatalf("after shutdown %d", 2)

	assert.Equal(t, []string{"swap abc failed", "after shutdown 2"}, logger.Errors())
}

func TestVerboseTestLogger(t *testing.T) {
	logger := ulogger.NewVerboseTestLogger(t)
	assert.Equal(t, 0, logger.LogLevel())

	child := logger.New("router")
	child.Infof("worker %d started", 1)
	child.Debugf("debug")
	child.Warnf("warn")
	child.Errorf("error")
}
