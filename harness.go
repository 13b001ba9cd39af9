// Package interbench benchmarks and validates the dense pairwise interaction
// kernels of a recommendation-model bottom layer on an emulated tiled
// matrix-core device.
//
// A Harness runs one trial at a time through a fixed lifecycle:
//
//	Reset -> Setup -> (skip | Execute -> Validate -> Report) -> TearDown
//
// Setup gates the trial against device capability, problem shape and
// shared-memory limits; ineligible trials are skipped, not failed. Execute
// dispatches the bound kernel sequence inside a device-event timed region
// and derives throughput and efficiency. Validate (ModeValidate only)
// compares device output against a host reference within a per-type
// tolerance. TearDown releases trial resources on every path.
package interbench

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/LynnColeArt/interbench/device"
	"github.com/LynnColeArt/interbench/kernels"
)

// Options configures a Harness. Zero values select benchmark mode, the
// default device context, and a discarding report session.
type Options struct {
	Mode    RunMode
	Context *device.Context
	Stream  *device.Stream
	Session *ReportSession
}

// Harness drives trials for one kernel variant. It owns a TrialState that is
// reset before reuse; a harness must not run concurrent trials.
type Harness struct {
	variant Variant
	mode    RunMode
	ctx     *device.Context
	stream  *device.Stream
	session *ReportSession
	storage *TrialStorage

	// TrialState, mutated through the lifecycle.
	m, k, b          int
	mPadded, kPadded int
	tBlockX, tBlockY int
	direction        Direction
	repeats          int
	runFlag          bool

	elapsedMs   float64
	totalGFlops float64
	tflops      float64
	efficiency  int64

	validationResult bool
	maxRelativeError float64
}

// NewHarness creates a harness for the given variant. Construction implies
// Reset.
func NewHarness(v Variant, opts Options) *Harness {
	ctx := opts.Context
	if ctx == nil {
		ctx = device.NewContext(nil)
	}
	stream := opts.Stream
	if stream == nil {
		stream = ctx.Stream()
	}
	h := &Harness{
		variant: v,
		mode:    opts.Mode,
		ctx:     ctx,
		stream:  stream,
		session: opts.Session,
		storage: newTrialStorage(ctx, stream, v.DataType, opts.Mode == ModeValidate),
	}
	h.Reset()
	return h
}

// Reset restores the trial state to its initial values. It runs implicitly
// at construction and must be called before reusing the harness for another
// trial.
func (h *Harness) Reset() {
	h.m, h.k, h.b = 0, 0, 0
	h.mPadded, h.kPadded = 0, 0
	h.tBlockX, h.tBlockY = 0, 0
	h.direction = Forward
	h.repeats = h.mode.repeats()
	h.runFlag = true

	h.elapsedMs = 0
	h.totalGFlops = 0
	h.tflops = 0
	h.efficiency = -1

	h.validationResult = false
	h.maxRelativeError = 0
}

// Setup normalizes the problem, evaluates the capability gate, and stages
// buffers for eligible trials. It is the only state that can mark the trial
// skipped. Staging failures are device faults and propagate.
func (h *Harness) Setup(p ProblemParams) error {
	h.runFlag = true

	h.tBlockX, h.tBlockY = p.TBlockX, p.TBlockY
	h.m, h.k, h.b = p.M, p.K, p.B
	h.direction = p.Direction

	ts := h.variant.TileSize
	h.mPadded = device.CeilDiv(h.m, ts) * ts
	h.kPadded = device.CeilDiv(h.k, ts) * ts

	dev := h.ctx.Device()
	h.runFlag = h.runFlag && checkDevice(dev.Arch, h.variant.DataType, ts)
	h.runFlag = h.runFlag && checkSizes(h.m, h.k, h.tBlockX, ts)
	h.runFlag = h.runFlag && checkLds(h.variant.LDSUsage(), dev.SharedMemBytes)

	if !h.runFlag {
		klog.V(1).Infof("trial %s M=%d K=%d B=%d %s: ineligible, skipping",
			h.variant, h.m, h.k, h.b, h.direction)
		return nil
	}

	var err error
	if h.direction == Forward {
		err = h.storage.StageForward(h.m, h.k, h.b)
	} else {
		err = h.storage.StageBackward(h.m, h.k, h.b)
	}
	if err != nil {
		return err
	}
	return h.storage.FillInputs(h.m, h.k, h.b, h.direction)
}

// Execute dispatches the bound kernel sequence `repeats` times between a
// device start and stop event and derives the trial's metrics. Repeats are
// issued back to back with no host synchronization in between; the single
// stop-event wait bounds the timed region. No-op when the trial is skipped.
func (h *Harness) Execute() error {
	if !h.runFlag {
		return nil
	}

	bound := h.bind()

	start, stop := device.NewEvent(), device.NewEvent()
	defer start.Destroy()
	defer stop.Destroy()

	if err := start.Record(h.stream); err != nil {
		return errors.Wrap(err, "recording start event")
	}
	for i := 0; i < h.repeats; i++ {
		if err := bound.run(h.ctx, h.stream); err != nil {
			return err
		}
	}
	if err := stop.Record(h.stream); err != nil {
		return errors.Wrap(err, "recording stop event")
	}
	if err := stop.Synchronize(); err != nil {
		return errors.Wrap(err, "synchronizing stop event")
	}

	elapsed, err := device.Elapsed(start, stop)
	if err != nil {
		return errors.Wrap(err, "reading elapsed time")
	}

	outputSize := h.m * h.m
	if h.direction == Backward {
		outputSize = h.m * h.k
	}

	h.elapsedMs = elapsed
	h.totalGFlops = totalGFlops(outputSize, h.b, h.k)
	h.tflops = tflopsPerSec(outputSize, h.b, h.k, h.elapsedMs) * float64(h.repeats)
	h.efficiency = efficiency(h.tflops, h.ctx.Device().PeakGFlops(h.variant.DataType))
	return nil
}

// Validate compares device output against the host reference. No-op outside
// ModeValidate or when the trial is skipped. A tolerance miss records a
// failed trial; only device faults return an error.
func (h *Harness) Validate() error {
	if h.mode != ModeValidate || !h.runFlag {
		return nil
	}
	if h.direction == Forward {
		return h.validateForward()
	}
	return h.validateBackward()
}

func (h *Harness) validateForward() error {
	packed := kernels.PackedBatchSize(h.m, h.k)
	reference := make([]float32, packed*h.b)
	kernels.ForwardReference(h.storage.hostInput, reference, h.m, h.k, h.b)

	actual, err := h.storage.readBack(h.storage.output, packed*h.b)
	if err != nil {
		return err
	}
	tol := baseTolerance(h.variant.DataType) * forwardToleranceScale
	h.validationResult, h.maxRelativeError = compareRelative(reference, actual, tol)
	return nil
}

func (h *Harness) validateBackward() error {
	refGrad := make([]float32, h.m*h.k*h.b)
	refBottom := make([]float32, h.k*h.b)
	kernels.BackwardReference(h.storage.hostInput, h.storage.hostUpstream,
		refBottom, refGrad, h.m, h.k, h.b)

	tol := baseTolerance(h.variant.DataType)

	grad, err := h.storage.readBack(h.storage.grad, h.m*h.k*h.b)
	if err != nil {
		return err
	}
	_, gradErr := compareRelative(refGrad, grad, tol)

	bottom, err := h.storage.readBack(h.storage.bottomGrad, h.k*h.b)
	if err != nil {
		return err
	}
	bottomPass, bottomErr := compareRelative(refBottom, bottom, tol)

	// Combination preserved from the original harness: the verdict comes
	// from the bottom-gradient comparison alone while the error keeps the
	// max of both. Kept for output compatibility even though ANDing the
	// verdicts would be the obvious reading.
	h.validationResult = bottomPass
	h.maxRelativeError = gradErr
	if bottomErr > h.maxRelativeError {
		h.maxRelativeError = bottomErr
	}
	return nil
}

// Report writes the trial's row through the session. Skipped trials emit the
// SKIPPED sentinel row.
func (h *Harness) Report() error {
	if h.session == nil {
		return nil
	}
	return h.session.WriteRow(h.row())
}

func (h *Harness) row() TrialRow {
	row := TrialRow{
		TileSize:  h.variant.TileSize,
		DataType:  h.variant.DataType,
		Direction: h.direction,
		M:         h.m, K: h.k, B: h.b,
	}
	if !h.runFlag {
		row.Skipped = true
		return row
	}
	row.MaxRelativeError = h.maxRelativeError
	row.Tolerance = h.tolerance()
	row.Passed = h.validationResult
	row.ElapsedMs = h.elapsedMs
	row.TotalGFlops = h.totalGFlops
	row.TFlops = h.tflops
	row.Efficiency = h.efficiency
	return row
}

func (h *Harness) tolerance() float64 {
	tol := baseTolerance(h.variant.DataType)
	if h.direction == Forward {
		tol *= forwardToleranceScale
	}
	return tol
}

// TearDown releases trial resources. It runs on every path, including the
// skip path, and leaves the harness ready for Reset.
func (h *Harness) TearDown() error {
	return h.storage.Release()
}

// Run drives a full trial lifecycle for one problem. TearDown always runs;
// its error surfaces only when the trial itself succeeded.
func (h *Harness) Run(p ProblemParams) error {
	h.Reset()
	err := h.Setup(p)
	if err == nil {
		err = h.Execute()
	}
	if err == nil {
		err = h.Validate()
	}
	if err == nil {
		err = h.Report()
	}
	if tdErr := h.TearDown(); err == nil {
		err = tdErr
	}
	return err
}

// Eligible reports whether the current trial passed the capability gate.
func (h *Harness) Eligible() bool { return h.runFlag }

// ElapsedMs returns the measured device time for the trial's timed region.
func (h *Harness) ElapsedMs() float64 { return h.elapsedMs }

// TotalGFlops returns the trial's problem size in GFLOPs.
func (h *Harness) TotalGFlops() float64 { return h.totalGFlops }

// TFlops returns the measured throughput in TFLOP/s scaled by repeats.
func (h *Harness) TFlops() float64 { return h.tflops }

// Efficiency returns the scaled efficiency figure, -1 before Execute.
func (h *Harness) Efficiency() int64 { return h.efficiency }

// Passed reports the validation verdict of the last trial.
func (h *Harness) Passed() bool { return h.validationResult }

// MaxRelativeError returns the worst relative error observed in validation.
func (h *Harness) MaxRelativeError() float64 { return h.maxRelativeError }

// Storage exposes the trial storage, used by tests to assert staging
// behavior.
func (h *Harness) Storage() *TrialStorage { return h.storage }

// Variant returns the harness's kernel variant.
func (h *Harness) Variant() Variant { return h.variant }
