package series

import (
	"fmt"
	"math"
	"sort"
)

// sampleTolerance is the fraction of the sample spacing within which a
// sample time is considered to lie exactly on an interval boundary.
const sampleTolerance = 1e-3

// Selector picks a contiguous run of samples from a uniformly sampled series.
type Selector interface {
	// Indices returns the inclusive index range [first, last] of the selected
	// samples of a series with the given start, spacing and length. ok is
	// false when no sample is selected.
	Indices(start, step float64, n int) (first, last int, ok bool)
}

// Interval selects samples with Start <= t < End.
type Interval struct {
	Start float64
	End   float64
}

// Validate reports whether the interval is well formed.
func (iv Interval) Validate() error {
	if math.IsNaN(iv.Start) || math.IsNaN(iv.End) {
		return fmt.Errorf("interval bounds must be numbers, got [%g, %g)", iv.Start, iv.End)
	}
	if iv.Start > iv.End {
		return fmt.Errorf("interval start %g is after end %g", iv.Start, iv.End)
	}
	return nil
}

func (iv Interval) String() string { return fmt.Sprintf("[%g, %g)", iv.Start, iv.End) }

// Indices implements Selector.
func (iv Interval) Indices(start, step float64, n int) (int, int, bool) {
	if n <= 0 || iv.End <= iv.Start {
		return 0, 0, false
	}
	tol := sampleTolerance * step
	lo := sort.Search(n, func(i int) bool {
		return SampleTime(start, step, i) >= iv.Start-tol
	})
	hi := sort.Search(n, func(i int) bool {
		return SampleTime(start, step, i) >= iv.End-tol
	})
	if lo >= hi {
		return 0, 0, false
	}
	return lo, hi - 1, true
}

// Epoch selects samples strictly closer than Pad to Center. A sample at
// exactly Pad from Center is not selected.
type Epoch struct {
	Center float64
	Pad    float64
}

// Validate reports whether the epoch is well formed.
func (e Epoch) Validate() error {
	if math.IsNaN(e.Center) || math.IsNaN(e.Pad) {
		return fmt.Errorf("epoch center and pad must be numbers")
	}
	if e.Pad < 0 {
		return fmt.Errorf("epoch pad must be non-negative, got %g", e.Pad)
	}
	return nil
}

func (e Epoch) String() string { return fmt.Sprintf("%g±%g", e.Center, e.Pad) }

// epochRoundingUlps is how many ulps inside the pad a sample may sit and
// still count as lying on the boundary.
const epochRoundingUlps = 4

// Indices implements Selector.
func (e Epoch) Indices(start, step float64, n int) (int, int, bool) {
	limit := e.Pad - e.roundingTolerance()
	if n <= 0 || limit <= 0 {
		return 0, 0, false
	}
	inside := func(t float64) bool { return math.Abs(t-e.Center) < limit }
	lo := sort.Search(n, func(i int) bool {
		t := SampleTime(start, step, i)
		return t >= e.Center || inside(t)
	})
	hi := sort.Search(n, func(i int) bool {
		t := SampleTime(start, step, i)
		return t > e.Center && !inside(t)
	})
	if lo >= hi || !inside(SampleTime(start, step, lo)) {
		return 0, 0, false
	}
	return lo, hi - 1, true
}

// roundingTolerance is a few ulps at the magnitude of the times compared
// against the epoch.
func (e Epoch) roundingTolerance() float64 {
	m := math.Abs(e.Center) + e.Pad
	return epochRoundingUlps * (math.Nextafter(m, math.Inf(1)) - m)
}
