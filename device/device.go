// Package device provides an emulated accelerator runtime for kernel
// benchmarking. It models a tiled matrix-core GPU on the host CPU: an
// ordered execution stream, device events for timing, a pooled buffer
// allocator, and a device-facts surface (architecture class, warp size,
// shared-memory capacity, per-type peak throughput) that harness code can
// query without touching real driver APIs.
package device

import (
	"fmt"
	"runtime"
)

// Arch identifies the emulated device architecture class. The set is closed:
// harness gating logic switches over these values and treats anything else as
// unsupported.
type Arch int

const (
	ArchUnsupported Arch = iota
	ArchGfx908
	ArchGfx90A
	ArchGfx940
	ArchGfx1100
	ArchGfx1101
	ArchGfx1102
)

// String returns the canonical architecture name.
func (a Arch) String() string {
	switch a {
	case ArchGfx908:
		return "gfx908"
	case ArchGfx90A:
		return "gfx90a"
	case ArchGfx940:
		return "gfx940"
	case ArchGfx1100:
		return "gfx1100"
	case ArchGfx1101:
		return "gfx1101"
	case ArchGfx1102:
		return "gfx1102"
	default:
		return "unsupported"
	}
}

// Recognized reports whether the architecture is one the runtime knows.
func (a Arch) Recognized() bool {
	return a != ArchUnsupported
}

// Compact reports whether the architecture belongs to the compact (gfx11)
// class, which carries reduced matrix-core data type support.
func (a Arch) Compact() bool {
	return a == ArchGfx1100 || a == ArchGfx1101 || a == ArchGfx1102
}

// Device describes one emulated accelerator. Fields are fixed at construction;
// the harness consumes them as pure queries.
type Device struct {
	Name           string
	Arch           Arch
	WarpSize       int
	SharedMemBytes int
	NumCores       int

	peaks map[DataType]float64 // GFLOP/s per data type
}

// PeakGFlops returns the theoretical peak throughput in GFLOP/s for the given
// data type, or 0 when the type has no matrix-core path on this device.
func (d *Device) PeakGFlops(dt DataType) float64 {
	return d.peaks[dt]
}

// String formats the device for logs.
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s, %d cores, warp %d, %d bytes LDS)",
		d.Name, d.Arch, d.NumCores, d.WarpSize, d.SharedMemBytes)
}

// Per-architecture multipliers applied to the host's estimated float32 peak.
// Compact-class parts trade float64 throughput for packed low-precision rates.
var archPeakScale = map[Arch]map[DataType]float64{
	ArchGfx908:  {Float32: 1.0, Float64: 0.5, Float16: 4.0, BFloat16: 2.0, Int8: 4.0},
	ArchGfx90A:  {Float32: 1.0, Float64: 1.0, Float16: 4.0, BFloat16: 4.0, Int8: 4.0},
	ArchGfx940:  {Float32: 2.0, Float64: 1.0, Float16: 8.0, BFloat16: 8.0, Int8: 16.0},
	ArchGfx1100: {Float32: 1.0, Float64: 0.0625, Float16: 2.0, BFloat16: 2.0, Int8: 4.0},
	ArchGfx1101: {Float32: 1.0, Float64: 0.0625, Float16: 2.0, BFloat16: 2.0, Int8: 4.0},
	ArchGfx1102: {Float32: 1.0, Float64: 0.0625, Float16: 2.0, BFloat16: 2.0, Int8: 4.0},
}

// Profile constructs a Device emulating the given architecture class on the
// host CPU. Peak rates are derived from the host's core count and SIMD width
// so efficiency numbers stay meaningful across machines.
func Profile(arch Arch) *Device {
	cores := runtime.NumCPU()
	base := hostPeakGFlops(cores)

	warp := 64
	lds := 64 * 1024
	if arch.Compact() {
		warp = 32
	}

	peaks := make(map[DataType]float64, len(dataTypes))
	for dt, scale := range archPeakScale[arch] {
		peaks[dt] = base * scale
	}

	return &Device{
		Name:           fmt.Sprintf("emu-%s", arch),
		Arch:           arch,
		WarpSize:       warp,
		SharedMemBytes: lds,
		NumCores:       cores,
		peaks:          peaks,
	}
}

// Default returns the device profile matching the host CPU's capabilities.
// Wider SIMD maps to a bigger emulated part.
func Default() *Device {
	return Profile(defaultArch())
}
