package interbench

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/LynnColeArt/interbench/device"
)

// ReportSession writes trial rows to one output stream. It owns the
// header-printed flag, so the column header appears exactly once per session
// rather than once per process. Sessions are safe for use from one sweep at
// a time; the mutex only guards the header race when harnesses share a
// session.
type ReportSession struct {
	mu         sync.Mutex
	w          io.Writer
	mode       RunMode
	headerDone bool
}

// NewReportSession creates a session writing to w in the given mode. The
// mode decides whether validation columns appear.
func NewReportSession(w io.Writer, mode RunMode) *ReportSession {
	return &ReportSession{w: w, mode: mode}
}

// TrialRow carries one trial's reportable state.
type TrialRow struct {
	TileSize  int
	DataType  device.DataType
	Direction Direction
	M, K, B   int

	Skipped bool

	MaxRelativeError float64
	Tolerance        float64
	Passed           bool

	ElapsedMs   float64
	TotalGFlops float64
	TFlops      float64
	Efficiency  int64
}

// WriteRow emits the header on first use, then the trial's detail row.
func (s *ReportSession) WriteRow(row TrialRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.headerDone {
		if err := s.writeHeader(); err != nil {
			return err
		}
		s.headerDone = true
	}

	prefix := fmt.Sprintf("%d, %s, %s, %d, %d, %d, ",
		row.TileSize, row.DataType, row.Direction, row.M, row.K, row.B)

	var body string
	switch {
	case row.Skipped && s.mode == ModeValidate:
		body = "n/a, n/a, n/a, n/a, n/a, n/a, SKIPPED"
	case row.Skipped:
		body = "n/a, n/a, n/a, n/a, SKIPPED"
	case s.mode == ModeValidate:
		marker := "FAILED"
		if row.Passed {
			marker = "PASSED"
		}
		body = fmt.Sprintf("%g, %g, %g, %g, %g, %d, %s",
			row.MaxRelativeError, row.Tolerance,
			row.ElapsedMs, row.TotalGFlops, row.TFlops, row.Efficiency, marker)
	default:
		body = fmt.Sprintf("%g, %g, %g, %d, BENCH",
			row.ElapsedMs, row.TotalGFlops, row.TFlops, row.Efficiency)
	}

	_, err := fmt.Fprintln(s.w, prefix+body)
	return errors.Wrap(err, "writing report row")
}

func (s *ReportSession) writeHeader() error {
	cols := "TileSize, DataT, Direction, MatM, MatK, MatB, "
	if s.mode == ModeValidate {
		cols += "maxRelativeDiff, tolerance, "
	}
	cols += "elapsedMs, Problem Size(GFlops), TFlops/s, Efficiency(%)"
	_, err := fmt.Fprintln(s.w, cols)
	return errors.Wrap(err, "writing report header")
}
