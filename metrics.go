package interbench

import (
	"math"
)

// FLOP accounting for the interaction operation. Forward and backward share
// the formula; only the output element count differs (M*M forward, M*K
// backward).

// totalGFlops returns the problem size in GFLOPs: one multiply and one add
// per K-element accumulation across outputSize elements and B batches.
func totalGFlops(outputSize, b, k int) float64 {
	return 2.0 * float64(outputSize) * float64(b) * float64(k) / 1e9
}

// tflopsPerSec returns measured throughput for one repeat in TFLOP/s.
// GFLOPs divided by milliseconds is numerically TFLOP/s.
func tflopsPerSec(outputSize, b, k int, elapsedMs float64) float64 {
	if elapsedMs <= 0 {
		return 0
	}
	return totalGFlops(outputSize, b, k) / elapsedMs
}

// efficiency scales measured throughput against the device peak. The peak is
// expressed in GFLOP/s while the measurement is TFLOP/s, so the 100000
// factor yields a percentage with five digits of precision retained before
// rounding. Downstream tooling parses this exact scale.
func efficiency(tflops, peakGFlops float64) int64 {
	if peakGFlops <= 0 {
		return 0
	}
	return int64(math.Round(tflops / peakGFlops * 100000.0))
}
