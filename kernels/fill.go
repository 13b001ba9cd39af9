package kernels

import (
	"github.com/LynnColeArt/interbench/device"
)

// FillValue is the deterministic input generator. It depends only on the
// element index within a batch, the batch index, and a seed, so host mirrors
// can be rebuilt without a device readback. Values land in [-1, 1] with a
// short period; the quantizer of the active data type is applied on top.
func FillValue(idx, batch, seed int) float32 {
	return float32((idx*19+batch*7+seed)%17-8) * 0.125
}

// Fill writes the generator pattern, quantized through the given data type,
// into a device buffer of N elements per batch.
type Fill struct {
	Dst device.Buffer // N per batch

	N, B  int
	Seed  int
	DType device.DataType
}

// Execute runs one thread of the fill kernel.
func (f Fill) Execute(tid device.ThreadID) {
	batch := tid.BlockIdx.Z
	if batch >= f.B {
		return
	}
	dst := f.Dst.Float32()[batch*f.N:]

	stride := tid.GridThreads()
	for idx := tid.GlobalX(); idx < f.N; idx += stride {
		dst[idx] = f.DType.Quantize(FillValue(idx, batch, f.Seed))
	}
}

// FillHost writes the same pattern as Fill into a host slice of N elements
// per batch. Staging uses it to build validation mirrors.
func FillHost(dst []float32, n, b, seed int, dt device.DataType) {
	for batch := 0; batch < b; batch++ {
		base := batch * n
		for idx := 0; idx < n; idx++ {
			dst[base+idx] = dt.Quantize(FillValue(idx, batch, seed))
		}
	}
}
