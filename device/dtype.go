package device

import (
	"math"

	"github.com/x448/float16"
)

// DataType enumerates the element types the matrix-core pipeline accepts.
// Buffers hold float32 working values regardless of type; DataType selects
// gating rules, peak-rate tables, and the storage precision values are
// quantized through when staged.
type DataType int

const (
	Float32 DataType = iota
	Float64
	Float16
	BFloat16
	Int8
)

var dataTypes = []DataType{Float32, Float64, Float16, BFloat16, Int8}

// DataTypes returns the closed set of supported data types.
func DataTypes() []DataType {
	out := make([]DataType, len(dataTypes))
	copy(out, dataTypes)
	return out
}

// String returns the short type name used in report rows.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case Float16:
		return "f16"
	case BFloat16:
		return "bf16"
	case Int8:
		return "i8"
	default:
		return "unknown"
	}
}

// Size returns the element size in bytes on a real device. LDS accounting
// uses this even though emulated buffers store float32.
func (dt DataType) Size() int {
	switch dt {
	case Float64:
		return 8
	case Float16, BFloat16:
		return 2
	case Int8:
		return 1
	default:
		return 4
	}
}

// Quantize rounds a working value through the storage precision of the type.
// Fill generators apply this on both the device and host sides so reference
// data matches staged data bit for bit.
func (dt DataType) Quantize(v float32) float32 {
	switch dt {
	case Float16:
		return float16.Fromfloat32(v).Float32()
	case BFloat16:
		return bfloat16Round(v)
	case Int8:
		r := math.Round(float64(v))
		if r > 127 {
			r = 127
		} else if r < -128 {
			r = -128
		}
		return float32(r)
	default:
		return v
	}
}

// bfloat16Round rounds a float32 to the nearest bfloat16 (round to nearest
// even) and widens it back.
func bfloat16Round(f float32) float32 {
	bits := math.Float32bits(f)
	if bits&0x7F800000 == 0x7F800000 {
		// Inf and NaN pass through truncation unchanged.
		return math.Float32frombits(bits & 0xFFFF0000)
	}
	lsb := (bits >> 16) & 1
	bits += 0x7FFF + lsb
	return math.Float32frombits(bits & 0xFFFF0000)
}
