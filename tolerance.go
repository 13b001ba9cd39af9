package interbench

import (
	"math"

	"github.com/LynnColeArt/interbench/device"
)

// baseTolerance returns the relative-error bound for a data type's working
// precision. The forward comparison relaxes this by forwardToleranceScale;
// backward comparisons use it directly.
func baseTolerance(dt device.DataType) float64 {
	switch dt {
	case device.Float64:
		return 1e-7
	case device.Float16:
		return 1e-3
	case device.BFloat16:
		return 1e-2
	case device.Int8:
		return 1e-6
	default:
		return 1e-6
	}
}

// forwardToleranceScale relaxes the forward comparison relative to backward;
// the packed output folds longer accumulations per element.
const forwardToleranceScale = 10.0

// compareRelative performs an element-wise relative-error comparison and
// returns the pass verdict together with the maximum relative error seen.
// NaN on either side fails the element with an infinite error.
func compareRelative(expected, actual []float32, tolerance float64) (bool, float64) {
	if len(expected) != len(actual) {
		return false, math.Inf(1)
	}
	maxRel := 0.0
	for i := range expected {
		e := float64(expected[i])
		a := float64(actual[i])
		if math.IsNaN(e) || math.IsNaN(a) {
			return false, math.Inf(1)
		}
		if e == a {
			continue
		}
		diff := math.Abs(e - a)
		rel := diff
		if denom := math.Max(math.Abs(e), math.Abs(a)); denom > 0 {
			rel = diff / denom
		}
		if rel > maxRel {
			maxRel = rel
		}
	}
	return maxRel <= tolerance, maxRel
}
