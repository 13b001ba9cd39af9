// Package kernels holds the interaction-layer device kernels and their host
// reference implementations. Each kernel is a value type with its arguments
// bound as fields, launched over a grid with a grid-stride loop so the same
// code is correct for any launch geometry the harness picks.
//
// Packed output layout, per batch: the first K elements replicate row 0 of
// the input (the bottom MLP row); the remaining M(M-1)/2 elements are the
// strictly lower triangle of the pairwise dot-product matrix, row-major,
// indexed by TriIndex.
package kernels

import (
	"github.com/LynnColeArt/interbench/device"
)

// TriIndex returns the packed position of lower-triangle element (i, j),
// i > j, within the triangular section.
func TriIndex(i, j int) int {
	return i*(i-1)/2 + j
}

// PackedBatchSize returns the per-batch element count of the packed forward
// output and backward upstream gradient: M(M-1)/2 + K.
func PackedBatchSize(m, k int) int {
	return m*(m-1)/2 + k
}

// Forward computes, per batch, the pairwise dot-product matrix of the M
// input rows into the accumulation buffer and emits the packed interaction
// output.
type Forward struct {
	Input  device.Buffer // M*K per batch
	Output device.Buffer // PackedBatchSize(M, K) per batch
	Acc    device.Buffer // M*M per batch

	M, K, B           int
	InputBatchOffset  int
	OutputBatchOffset int
	AccBatchOffset    int
}

// Execute runs one thread of the forward kernel.
func (f Forward) Execute(tid device.ThreadID) {
	batch := tid.BlockIdx.Z
	if batch >= f.B {
		return
	}
	in := f.Input.Float32()[batch*f.InputBatchOffset:]
	out := f.Output.Float32()[batch*f.OutputBatchOffset:]
	acc := f.Acc.Float32()[batch*f.AccBatchOffset:]

	stride := tid.GridThreads()
	for idx := tid.GlobalX(); idx < f.M*f.M; idx += stride {
		i, j := idx/f.M, idx%f.M
		var dot float32
		ri, rj := in[i*f.K:(i+1)*f.K], in[j*f.K:(j+1)*f.K]
		for k := 0; k < f.K; k++ {
			dot += ri[k] * rj[k]
		}
		acc[idx] = dot
		if i > j {
			out[f.K+TriIndex(i, j)] = dot
		}
	}
	for k := tid.GlobalX(); k < f.K; k += stride {
		out[k] = in[k]
	}
}
