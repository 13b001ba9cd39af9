package interbench

import (
	"fmt"

	"github.com/LynnColeArt/interbench/device"
)

// Variant identifies one specialized kernel build: a tile size and data type
// pair. The set is small and closed; Variants enumerates it, and harnesses
// are constructed per variant rather than dispatching dynamically.
type Variant struct {
	TileSize int
	DataType device.DataType
}

var tileSizes = []int{16, 32}

// Variants returns every (tile size, data type) combination the kernel
// family is built for. Whether a combination can actually run on a given
// device is the capability gate's call, made per trial.
func Variants() []Variant {
	var out []Variant
	for _, ts := range tileSizes {
		for _, dt := range device.DataTypes() {
			out = append(out, Variant{TileSize: ts, DataType: dt})
		}
	}
	return out
}

// String formats the variant for logs.
func (v Variant) String() string {
	return fmt.Sprintf("t%d/%s", v.TileSize, v.DataType)
}

// LDSUsage returns the shared-memory bytes the kernel variant stages: two
// cooperative tiles of TileSize^2 elements at the variant's element width.
func (v Variant) LDSUsage() int {
	return 2 * v.TileSize * v.TileSize * v.DataType.Size()
}
