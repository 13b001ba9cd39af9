package interbench

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/interbench/device"
	"github.com/LynnColeArt/interbench/kernels"
)

func newTestContext(t *testing.T, arch device.Arch) *device.Context {
	t.Helper()
	ctx := device.NewContext(device.Profile(arch))
	t.Cleanup(func() { ctx.Destroy() })
	return ctx
}

func TestForwardTrialEndToEnd(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx90A)
	var buf bytes.Buffer
	session := NewReportSession(&buf, ModeValidate)
	h := NewHarness(Variant{16, device.Float32}, Options{
		Mode: ModeValidate, Context: ctx, Session: session,
	})

	p := ProblemParams{TBlockX: 128, TBlockY: 1, M: 16, K: 16, B: 1, Direction: Forward}
	require.NoError(t, h.Setup(p))
	require.True(t, h.Eligible())

	// Packed output: 16*15/2 + 16 = 136 elements per batch.
	assert.Equal(t, 136, h.Storage().output.Len())

	require.NoError(t, h.Execute())
	assert.Greater(t, h.ElapsedMs(), 0.0)
	assert.Greater(t, h.TotalGFlops(), 0.0)
	assert.Greater(t, h.TFlops(), 0.0)
	assert.GreaterOrEqual(t, h.Efficiency(), int64(0))

	require.NoError(t, h.Validate())
	assert.True(t, h.Passed(), "max relative error: %g", h.MaxRelativeError())

	require.NoError(t, h.Report())
	require.NoError(t, h.TearDown())
	assert.Contains(t, buf.String(), "PASSED")
}

func TestBackwardTrialEndToEnd(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx940)
	h := NewHarness(Variant{16, device.Float32}, Options{Mode: ModeValidate, Context: ctx})

	p := ProblemParams{TBlockX: 128, TBlockY: 1, M: 32, K: 16, B: 2, Direction: Backward}
	require.NoError(t, h.Setup(p))
	require.True(t, h.Eligible())
	require.NoError(t, h.Execute())
	require.NoError(t, h.Validate())
	assert.True(t, h.Passed(), "max relative error: %g", h.MaxRelativeError())
	require.NoError(t, h.TearDown())
}

func TestSkippedTrialStagesNothing(t *testing.T) {
	ctx := newTestContext(t, device.ArchUnsupported)
	var buf bytes.Buffer
	session := NewReportSession(&buf, ModeBenchmark)
	h := NewHarness(Variant{16, device.Float32}, Options{
		Mode: ModeBenchmark, Context: ctx, Session: session,
	})

	p := ProblemParams{TBlockX: 128, TBlockY: 1, M: 16, K: 16, B: 1, Direction: Forward}
	require.NoError(t, h.Setup(p))
	assert.False(t, h.Eligible())
	assert.Zero(t, h.Storage().StageCount(), "skipped trial must not stage buffers")

	// Execute and Validate are no-ops on the skip path.
	require.NoError(t, h.Execute())
	require.NoError(t, h.Validate())
	assert.Zero(t, h.ElapsedMs())

	require.NoError(t, h.Report())
	require.NoError(t, h.TearDown())
	assert.Contains(t, buf.String(), "SKIPPED")
}

func TestShapeMismatchSkips(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx90A)
	var buf bytes.Buffer
	session := NewReportSession(&buf, ModeBenchmark)
	h := NewHarness(Variant{16, device.Float32}, Options{
		Mode: ModeBenchmark, Context: ctx, Session: session,
	})

	// K=17 is not a multiple of 16.
	require.NoError(t, h.Run(ProblemParams{TBlockX: 128, TBlockY: 1, M: 32, K: 17, B: 1, Direction: Forward}))
	assert.False(t, h.Eligible())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2) // header + row
	assert.True(t, strings.HasSuffix(lines[1], "SKIPPED"))
	assert.Contains(t, lines[1], "32, 17, 1")
}

func TestCompactArchitectureRestriction(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx1100)
	p := ProblemParams{TBlockX: 128, TBlockY: 1, M: 32, K: 32, B: 1, Direction: Forward}

	tests := []struct {
		name     string
		variant  Variant
		eligible bool
	}{
		{"i8 tile16", Variant{16, device.Int8}, true},
		{"i8 tile32", Variant{32, device.Int8}, false},
		{"f64 tile16", Variant{16, device.Float64}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHarness(tt.variant, Options{Context: ctx})
			require.NoError(t, h.Setup(p))
			assert.Equal(t, tt.eligible, h.Eligible())
			require.NoError(t, h.TearDown())
		})
	}
}

func TestHarnessReuseAcrossTrials(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx90A)
	h := NewHarness(Variant{16, device.Float32}, Options{Mode: ModeValidate, Context: ctx})

	for _, p := range []ProblemParams{
		{TBlockX: 128, TBlockY: 1, M: 16, K: 16, B: 1, Direction: Forward},
		{TBlockX: 128, TBlockY: 1, M: 32, K: 17, B: 1, Direction: Forward}, // skipped
		{TBlockX: 128, TBlockY: 1, M: 16, K: 16, B: 2, Direction: Backward},
	} {
		require.NoError(t, h.Run(p))
	}
	// Last trial ran and validated.
	assert.True(t, h.Eligible())
	assert.True(t, h.Passed())

	// Reset clears timing and validation state.
	h.Reset()
	assert.Zero(t, h.ElapsedMs())
	assert.Equal(t, int64(-1), h.Efficiency())
	assert.False(t, h.Passed())
	assert.True(t, h.Eligible())
}

func TestRepeatCountsPerMode(t *testing.T) {
	assert.Equal(t, 1, ModeValidate.repeats())
	assert.Equal(t, 5, ModeBenchmark.repeats())
}

// The packed-size formula must agree between dispatcher offsets and the
// validator's reference sizing.
func TestOffsetFormulaRoundTrip(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx90A)
	h := NewHarness(Variant{16, device.Float32}, Options{Mode: ModeValidate, Context: ctx})

	p := ProblemParams{TBlockX: 128, TBlockY: 1, M: 48, K: 32, B: 3, Direction: Backward}
	require.NoError(t, h.Setup(p))
	defer h.TearDown()

	bound := h.bind()
	require.Equal(t, kernelBackward, bound.kind)
	packed := kernels.PackedBatchSize(48, 32)
	assert.Equal(t, 48*32, bound.backward.InputBatchOffset)
	assert.Equal(t, packed, bound.backward.UpstreamBatchOffset)
	assert.Equal(t, packed, bound.tril.UpstreamBatchOffset)
	assert.Equal(t, 48*48, bound.backward.AccBatchOffset)
	assert.Equal(t, 48*48, bound.tril.AccBatchOffset)

	// Buffers were sized with the same formula the offsets use.
	assert.Equal(t, packed*3, h.Storage().upstream.Len())
	assert.Equal(t, 48*48*3, h.Storage().accBwd.Len())
}

func TestForwardOffsets(t *testing.T) {
	ctx := newTestContext(t, device.ArchGfx90A)
	h := NewHarness(Variant{16, device.Float32}, Options{Context: ctx})

	require.NoError(t, h.Setup(ProblemParams{TBlockX: 128, TBlockY: 1, M: 16, K: 16, B: 1, Direction: Forward}))
	defer h.TearDown()

	bound := h.bind()
	require.Equal(t, kernelForward, bound.kind)
	assert.Equal(t, 16*16, bound.forward.InputBatchOffset)
	assert.Equal(t, 136, bound.forward.OutputBatchOffset)
	assert.Equal(t, 256, bound.forward.AccBatchOffset)
}
