package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogger_VerbosityGating(t *testing.T) {
	cases := []struct {
		verbosity    VerbosityLevel
		wantProgress bool
		wantDebug    bool
	}{
		{VerbosityDefault, false, false},
		{VerbosityVerbose, true, false},
		{VerbosityDebug, true, true},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		logger := NewLoggerWithWriter(tc.verbosity, &buf)

		logger.Progress("progress line")
		logger.Debug("debug line")

		out := buf.String()
		assert.Equal(t, tc.wantProgress, bytes.Contains(buf.Bytes(), []byte("progress line")), "verbosity %d", tc.verbosity)
		assert.Equal(t, tc.wantDebug, bytes.Contains([]byte(out), []byte("debug line")), "verbosity %d", tc.verbosity)
	}
}

func TestLogger_WarningAlwaysShown(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(VerbosityDefault, &buf)

	logger.Warning("something odd: %d", 7)
	assert.Contains(t, buf.String(), "Warning: something odd: 7")
}

func TestLogger_Timings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(VerbosityVerbose, &buf)

	stop := logger.StartTiming("analysis")
	stop()

	assert.GreaterOrEqual(t, logger.GetTiming("analysis"), time.Duration(0))

	logger.PrintTimingSummary()
	assert.Contains(t, buf.String(), "Timing Summary:")
	assert.Contains(t, buf.String(), "analysis")
}

func TestLogger_NonTTYProgressPrintsDescription(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(VerbosityVerbose, &buf)

	logger.StartProgress("analyzing functions", 10)
	logger.UpdateProgress(1)
	logger.FinishProgress()

	assert.False(t, logger.IsTTY())
	assert.Contains(t, buf.String(), "analyzing functions...")
}

func TestIsTTY_NonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTTY(&buf))
}

func TestTerminalWidth_NonFileWriterDefault(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 80, TerminalWidth(&buf))
}

func TestProgressBarWidth_ClampedToTerminal(t *testing.T) {
	// A non-file writer reports the 80-column default: 80-40 = 40.
	var buf bytes.Buffer
	assert.Equal(t, 40, progressBarWidth(&buf))
}
