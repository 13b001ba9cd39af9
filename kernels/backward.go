package kernels

import (
	"github.com/LynnColeArt/interbench/device"
)

// Backward computes the input gradient and the bottom MLP gradient from the
// dense gradient grid produced by TrilExtract. Each pairwise product S(i,j)
// contributes to both rows i and j; the symmetric grid folds both
// contributions into a single row sum. Row 0 additionally receives the
// identity path from the packed output's leading K elements.
type Backward struct {
	Input      device.Buffer // M*K per batch
	Upstream   device.Buffer // PackedBatchSize(M, K) per batch
	Grad       device.Buffer // M*K per batch
	BottomGrad device.Buffer // K per batch
	Acc        device.Buffer // M*M per batch, filled by TrilExtract

	M, K, B             int
	InputBatchOffset    int
	UpstreamBatchOffset int
	AccBatchOffset      int
}

// Execute runs one thread of the backward kernel.
func (bw Backward) Execute(tid device.ThreadID) {
	batch := tid.BlockIdx.Z
	if batch >= bw.B {
		return
	}
	in := bw.Input.Float32()[batch*bw.InputBatchOffset:]
	up := bw.Upstream.Float32()[batch*bw.UpstreamBatchOffset:]
	grad := bw.Grad.Float32()[batch*bw.InputBatchOffset:]
	bottom := bw.BottomGrad.Float32()[batch*bw.K:]
	acc := bw.Acc.Float32()[batch*bw.AccBatchOffset:]

	stride := tid.GridThreads()
	for idx := tid.GlobalX(); idx < bw.M*bw.K; idx += stride {
		i, k := idx/bw.K, idx%bw.K
		var sum float32
		row := acc[i*bw.M : (i+1)*bw.M]
		for j := 0; j < bw.M; j++ {
			sum += row[j] * in[j*bw.K+k]
		}
		if i == 0 {
			sum += up[k]
		}
		grad[idx] = sum
	}
	for k := tid.GlobalX(); k < bw.K; k += stride {
		bottom[k] = up[k]
	}
}
