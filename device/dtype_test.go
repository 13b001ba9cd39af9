package device

import (
	"math"
	"testing"

	"github.com/x448/float16"
)

func TestDataTypeNamesAndSizes(t *testing.T) {
	cases := []struct {
		dt   DataType
		name string
		size int
	}{
		{Float32, "f32", 4},
		{Float64, "f64", 8},
		{Float16, "f16", 2},
		{BFloat16, "bf16", 2},
		{Int8, "i8", 1},
	}
	for _, c := range cases {
		if c.dt.String() != c.name {
			t.Errorf("%v.String() = %q, want %q", c.dt, c.dt.String(), c.name)
		}
		if c.dt.Size() != c.size {
			t.Errorf("%s.Size() = %d, want %d", c.name, c.dt.Size(), c.size)
		}
	}
}

func TestQuantizeFloat16(t *testing.T) {
	// Quantize must agree with the reference conversion round trip.
	for _, v := range []float32{0, 1, -1, 0.1, 3.14159, 1e-4, 65504} {
		want := float16.Fromfloat32(v).Float32()
		if got := Float16.Quantize(v); got != want {
			t.Errorf("Float16.Quantize(%v) = %v, want %v", v, got, want)
		}
	}
	// Values representable in half precision survive unchanged.
	for _, v := range []float32{0, 0.5, 1, 2, -4, 0.25} {
		if got := Float16.Quantize(v); got != v {
			t.Errorf("Float16.Quantize(%v) = %v, want exact", v, got)
		}
	}
}

func TestQuantizeBFloat16(t *testing.T) {
	// bf16 keeps the float32 exponent, so powers of two are exact.
	for _, v := range []float32{0, 1, -2, 1024, 0.125} {
		if got := BFloat16.Quantize(v); got != v {
			t.Errorf("BFloat16.Quantize(%v) = %v, want exact", v, got)
		}
	}
	// 7 mantissa bits: spacing at 1.0 is 1/128, so 1 + 1/256 ties to even
	// and lands back on 1.0.
	if got := BFloat16.Quantize(1.00390625); got != 1.0 {
		t.Errorf("BFloat16.Quantize(1+1/256) = %v, want 1", got)
	}
	got := BFloat16.Quantize(1.001)
	if math.Abs(float64(got-1.001)) > 0.004 {
		t.Errorf("BFloat16.Quantize(1.001) = %v, too far", got)
	}
	// Inf passes through.
	inf := float32(math.Inf(1))
	if got := BFloat16.Quantize(inf); got != inf {
		t.Errorf("BFloat16.Quantize(+Inf) = %v", got)
	}
}

func TestQuantizeInt8(t *testing.T) {
	cases := map[float32]float32{
		0.4:    0,
		0.6:    1,
		-0.6:   -1,
		127.9:  127,
		-200:   -128,
		3:      3,
	}
	for in, want := range cases {
		if got := Int8.Quantize(in); got != want {
			t.Errorf("Int8.Quantize(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestQuantizeIdentityTypes(t *testing.T) {
	for _, v := range []float32{0.1, -3.7, 1e20} {
		if Float32.Quantize(v) != v {
			t.Errorf("Float32.Quantize(%v) changed the value", v)
		}
		if Float64.Quantize(v) != v {
			t.Errorf("Float64.Quantize(%v) changed the value", v)
		}
	}
}
