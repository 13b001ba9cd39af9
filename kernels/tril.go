package kernels

import (
	"github.com/LynnColeArt/interbench/device"
)

// TrilExtract expands the packed upstream gradient into a dense symmetric
// M x M gradient grid in the accumulation buffer: position (i, j) with i > j
// receives the packed triangle element for the pair, its mirror (j, i)
// receives the same value, and the diagonal is zero. The backward kernel
// reads the grid after an event wait guarantees it is fully materialized.
type TrilExtract struct {
	Upstream device.Buffer // PackedBatchSize(M, K) per batch
	Acc      device.Buffer // M*M per batch

	M, K, B             int
	UpstreamBatchOffset int
	AccBatchOffset      int
}

// Execute runs one thread of the triangular-extraction kernel.
func (t TrilExtract) Execute(tid device.ThreadID) {
	batch := tid.BlockIdx.Z
	if batch >= t.B {
		return
	}
	up := t.Upstream.Float32()[batch*t.UpstreamBatchOffset:]
	acc := t.Acc.Float32()[batch*t.AccBatchOffset:]

	stride := tid.GridThreads()
	for idx := tid.GlobalX(); idx < t.M*t.M; idx += stride {
		i, j := idx/t.M, idx%t.M
		switch {
		case i > j:
			acc[idx] = up[t.K+TriIndex(i, j)]
		case i < j:
			acc[idx] = up[t.K+TriIndex(j, i)]
		default:
			acc[idx] = 0
		}
	}
}
