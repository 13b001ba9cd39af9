package interbench

import (
	"github.com/LynnColeArt/interbench/device"
)

// Capability gate: pure predicates over already-queried device facts and the
// problem shape. All checks are independent; a trial runs only if every one
// passes.

// checkDevice reports whether the architecture supports the (data type, tile
// size) combination:
//   - the architecture must be recognized;
//   - gfx908 has no float64 matrix-core path;
//   - the compact class only accepts f16, bf16 and i8, and only at tile 16.
func checkDevice(arch device.Arch, dt device.DataType, tileSize int) bool {
	if !arch.Recognized() {
		return false
	}
	if arch == device.ArchGfx908 && dt == device.Float64 {
		return false
	}
	if arch.Compact() {
		lowPrecision := dt == device.Float16 || dt == device.BFloat16 || dt == device.Int8
		if !lowPrecision || tileSize != 16 {
			return false
		}
	}
	return true
}

// checkSizes reports whether the problem shape fits the tiled kernels: M and
// K at least one tile and exact tile multiples, and a thread-block X
// dimension that is a tile multiple.
func checkSizes(m, k, tBlockX, tileSize int) bool {
	return m >= tileSize && m%tileSize == 0 &&
		k >= tileSize && k%tileSize == 0 &&
		tBlockX%tileSize == 0
}

// checkLds reports whether the variant's shared-memory footprint fits the
// device.
func checkLds(requiredBytes, sharedMemBytes int) bool {
	return requiredBytes <= sharedMemBytes
}
