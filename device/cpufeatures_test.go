package device

import (
	"testing"
)

func TestHostSIMDNamed(t *testing.T) {
	if HostSIMD() == "" {
		t.Error("HostSIMD must name a level")
	}
}

func TestHostPeakPositive(t *testing.T) {
	if hostPeakGFlops(1) <= 0 {
		t.Error("single-core peak must be positive")
	}
	if hostPeakGFlops(8) != 8*hostPeakGFlops(1) {
		t.Error("peak must scale linearly with cores")
	}
}

func TestSimdLanesSane(t *testing.T) {
	lanes := simdLanes()
	switch lanes {
	case 4, 8, 16:
	default:
		t.Errorf("simdLanes() = %d, want 4, 8 or 16", lanes)
	}
}
