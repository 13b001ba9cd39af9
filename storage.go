package interbench

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/LynnColeArt/interbench/device"
	"github.com/LynnColeArt/interbench/kernels"
)

const fillBlock = 256

// TrialStorage owns every device buffer and host mirror for exactly one
// trial. The dispatcher and validator of that trial are its only readers;
// Release returns everything to the pool on teardown regardless of the path
// the trial took.
type TrialStorage struct {
	ctx      *device.Context
	stream   *device.Stream
	dtype    device.DataType
	validate bool

	input      device.Buffer
	output     device.Buffer
	accFwd     device.Buffer
	upstream   device.Buffer
	grad       device.Buffer
	bottomGrad device.Buffer
	accBwd     device.Buffer

	hostInput    []float32
	hostUpstream []float32

	stageCalls int
}

func newTrialStorage(ctx *device.Context, stream *device.Stream, dt device.DataType, validate bool) *TrialStorage {
	return &TrialStorage{ctx: ctx, stream: stream, dtype: dt, validate: validate}
}

// StageCount returns how many staging operations ran. Skipped trials must
// leave it at zero.
func (ts *TrialStorage) StageCount() int {
	return ts.stageCalls
}

// StageForward allocates the forward-pass buffers: input M*K*B, packed
// output, and the M*M accumulation grid.
func (ts *TrialStorage) StageForward(m, k, b int) error {
	ts.stageCalls++
	packed := kernels.PackedBatchSize(m, k)
	var err error
	if ts.input, err = ts.ctx.Malloc(m * k * b); err != nil {
		return errors.Wrap(err, "staging forward input")
	}
	if ts.output, err = ts.ctx.Malloc(packed * b); err != nil {
		return errors.Wrap(err, "staging forward output")
	}
	if ts.accFwd, err = ts.ctx.Malloc(m * m * b); err != nil {
		return errors.Wrap(err, "staging forward accumulator")
	}
	return nil
}

// StageBackward allocates the backward-pass buffers: input and gradient
// M*K*B, packed upstream gradient, bottom gradient K*B, and the M*M grid.
func (ts *TrialStorage) StageBackward(m, k, b int) error {
	ts.stageCalls++
	packed := kernels.PackedBatchSize(m, k)
	var err error
	if ts.input, err = ts.ctx.Malloc(m * k * b); err != nil {
		return errors.Wrap(err, "staging backward input")
	}
	if ts.upstream, err = ts.ctx.Malloc(packed * b); err != nil {
		return errors.Wrap(err, "staging upstream gradient")
	}
	if ts.grad, err = ts.ctx.Malloc(m * k * b); err != nil {
		return errors.Wrap(err, "staging input gradient")
	}
	if ts.bottomGrad, err = ts.ctx.Malloc(k * b); err != nil {
		return errors.Wrap(err, "staging bottom gradient")
	}
	if ts.accBwd, err = ts.ctx.Malloc(m * m * b); err != nil {
		return errors.Wrap(err, "staging backward accumulator")
	}
	return nil
}

// FillInputs launches the deterministic fill kernels for the staged inputs
// and, in validation mode, rebuilds identical host mirrors from the same
// generator so later comparison needs no extra device-to-host transfer.
func (ts *TrialStorage) FillInputs(m, k, b int, dir Direction) error {
	ts.stageCalls++
	if err := ts.fill(ts.input, m*k, b, seedInput); err != nil {
		return err
	}
	if dir == Backward {
		if err := ts.fill(ts.upstream, kernels.PackedBatchSize(m, k), b, seedUpstream); err != nil {
			return err
		}
	}
	if ts.validate {
		ts.hostInput = make([]float32, m*k*b)
		kernels.FillHost(ts.hostInput, m*k, b, seedInput, ts.dtype)
		if dir == Backward {
			packed := kernels.PackedBatchSize(m, k)
			ts.hostUpstream = make([]float32, packed*b)
			kernels.FillHost(ts.hostUpstream, packed, b, seedUpstream, ts.dtype)
		}
	}
	klog.V(2).Infof("staged inputs for %s pass, M=%d K=%d B=%d dtype=%s", dir, m, k, b, ts.dtype)
	return nil
}

// Seeds separating the two generated streams of a backward trial.
const (
	seedInput    = 1
	seedUpstream = 5
)

func (ts *TrialStorage) fill(dst device.Buffer, n, b, seed int) error {
	grid := device.Dim3{X: device.CeilDiv(n, fillBlock), Y: 1, Z: b}
	block := device.Dim3{X: fillBlock, Y: 1, Z: 1}
	err := ts.ctx.Launch(ts.stream, grid, block, kernels.Fill{
		Dst: dst, N: n, B: b, Seed: seed, DType: ts.dtype,
	})
	return errors.Wrap(err, "launching fill kernel")
}

// readBack synchronizes the stream and copies a device buffer to the host.
func (ts *TrialStorage) readBack(src device.Buffer, n int) ([]float32, error) {
	ts.stream.Synchronize()
	out := make([]float32, n)
	if err := ts.ctx.Memcpy(out, src, n, device.MemcpyDeviceToHost); err != nil {
		return nil, errors.Wrap(err, "copying device output to host")
	}
	return out, nil
}

// Release frees every staged buffer. Safe on the skip path where nothing was
// allocated.
func (ts *TrialStorage) Release() error {
	var first error
	for _, b := range []device.Buffer{
		ts.input, ts.output, ts.accFwd,
		ts.upstream, ts.grad, ts.bottomGrad, ts.accBwd,
	} {
		if err := ts.ctx.Free(b); err != nil && first == nil {
			first = err
		}
	}
	*ts = TrialStorage{ctx: ts.ctx, stream: ts.stream, dtype: ts.dtype, validate: ts.validate}
	return first
}
