package device

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// hostFeatures tracks the SIMD extensions available on the host CPU. They
// decide which emulated device profile Default() picks and scale its peak
// throughput estimate.
type hostFeatures struct {
	hasAVX2   bool
	hasAVX512 bool
	hasFMA    bool
	hasNEON   bool
}

var features hostFeatures

func init() {
	features = hostFeatures{
		hasAVX2:   cpu.X86.HasAVX2,
		hasAVX512: cpu.X86.HasAVX512F,
		hasFMA:    cpu.X86.HasFMA,
		hasNEON:   cpu.ARM64.HasASIMD,
	}
}

// simdLanes returns the number of float32 lanes of the widest available
// vector unit.
func simdLanes() int {
	switch {
	case features.hasAVX512:
		return 16
	case features.hasAVX2:
		return 8
	case features.hasNEON:
		return 4
	default:
		return 4 // SSE2 baseline on amd64, scalar pairs elsewhere
	}
}

// nominalGHz is the clock assumed for peak estimation. Real frequency varies
// with boost states; a fixed nominal keeps efficiency numbers stable.
const nominalGHz = 3.0

// hostPeakGFlops estimates the host float32 peak: cores x lanes x 2 (FMA)
// x clock.
func hostPeakGFlops(cores int) float64 {
	fmaOps := 2.0
	if !features.hasFMA && !features.hasNEON {
		fmaOps = 1.0
	}
	return float64(cores) * float64(simdLanes()) * fmaOps * nominalGHz
}

// defaultArch maps host capability to the emulated architecture class.
func defaultArch() Arch {
	switch {
	case features.hasAVX512:
		return ArchGfx940
	case features.hasAVX2, features.hasNEON:
		return ArchGfx90A
	default:
		return ArchGfx908
	}
}

// HostSIMD names the detected SIMD level for logs.
func HostSIMD() string {
	switch {
	case features.hasAVX512:
		return "AVX512"
	case features.hasAVX2:
		return "AVX2"
	case features.hasNEON:
		return "NEON"
	case runtime.GOARCH == "amd64":
		return "SSE2"
	default:
		return "scalar"
	}
}
