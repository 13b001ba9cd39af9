package interbench

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/interbench/device"
)

func TestHeaderPrintedOncePerSession(t *testing.T) {
	var buf bytes.Buffer
	session := NewReportSession(&buf, ModeBenchmark)

	row := TrialRow{TileSize: 16, DataType: device.Float32, Direction: Forward, M: 16, K: 16, B: 1}
	require.NoError(t, session.WriteRow(row))
	require.NoError(t, session.WriteRow(row))
	require.NoError(t, session.WriteRow(row))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, 1, strings.Count(buf.String(), "TileSize"))
	assert.True(t, strings.HasPrefix(lines[0], "TileSize, DataT, Direction"))
}

func TestSeparateSessionsEachPrintHeader(t *testing.T) {
	// The flag lives in the session, not the process.
	var a, b bytes.Buffer
	row := TrialRow{TileSize: 16, DataType: device.Float32, Direction: Forward}
	require.NoError(t, NewReportSession(&a, ModeBenchmark).WriteRow(row))
	require.NoError(t, NewReportSession(&b, ModeBenchmark).WriteRow(row))
	assert.Contains(t, a.String(), "TileSize, DataT")
	assert.Contains(t, b.String(), "TileSize, DataT")
}

func TestBenchmarkRowFormat(t *testing.T) {
	var buf bytes.Buffer
	session := NewReportSession(&buf, ModeBenchmark)
	require.NoError(t, session.WriteRow(TrialRow{
		TileSize: 32, DataType: device.Float16, Direction: Backward,
		M: 64, K: 32, B: 4,
		ElapsedMs: 1.5, TotalGFlops: 0.25, TFlops: 0.8, Efficiency: 123,
	}))

	out := buf.String()
	assert.NotContains(t, out, "maxRelativeDiff")
	assert.Contains(t, out, "32, f16, Backwards, 64, 32, 4, ")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "BENCH"))
}

func TestValidationRowFormats(t *testing.T) {
	var buf bytes.Buffer
	session := NewReportSession(&buf, ModeValidate)

	require.NoError(t, session.WriteRow(TrialRow{
		TileSize: 16, DataType: device.Float32, Direction: Forward, M: 16, K: 16, B: 1,
		MaxRelativeError: 1e-7, Tolerance: 1e-5, Passed: true,
		ElapsedMs: 0.1, TotalGFlops: 0.01, TFlops: 0.1, Efficiency: 5,
	}))
	require.NoError(t, session.WriteRow(TrialRow{
		TileSize: 16, DataType: device.Float32, Direction: Forward, M: 16, K: 16, B: 1,
		MaxRelativeError: 0.5, Tolerance: 1e-5, Passed: false,
	}))
	require.NoError(t, session.WriteRow(TrialRow{
		TileSize: 16, DataType: device.Float64, Direction: Forward, M: 8, K: 8, B: 1,
		Skipped: true,
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "maxRelativeDiff, tolerance")
	assert.True(t, strings.HasSuffix(lines[1], "PASSED"))
	assert.True(t, strings.HasSuffix(lines[2], "FAILED"))
	assert.True(t, strings.HasSuffix(lines[3], "SKIPPED"))
	assert.Contains(t, lines[3], "n/a")
}
