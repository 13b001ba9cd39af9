package interbench

// Direction selects the pass the harness benchmarks.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// String returns the direction name used in report rows.
func (d Direction) String() string {
	if d == Forward {
		return "Forwards"
	}
	return "Backwards"
}

// RunMode selects between pure benchmarking and reference validation.
type RunMode int

const (
	// ModeBenchmark times kernels over several repeats and reports BENCH rows.
	ModeBenchmark RunMode = iota
	// ModeValidate runs a single repeat and compares device output against
	// the host reference.
	ModeValidate
)

// repeats returns the per-trial repeat count for the mode: low and fixed for
// deterministic validation, higher for stable timing.
func (m RunMode) repeats() int {
	if m == ModeValidate {
		return 1
	}
	return 5
}

// ProblemParams describes one trial's problem. It is supplied by the caller
// and consumed once at setup.
type ProblemParams struct {
	TBlockX, TBlockY int
	M, K, B          int
	Direction        Direction
}
