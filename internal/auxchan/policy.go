// Package auxchan synthesizes the auxiliary status channels that accompany
// the strain: state vector, data-quality vector and the iDQ noise monitor.
//
// Every channel is built by the same algorithm: allocate a series aligned to
// the strain, fill it with a baseline, then apply an override to each
// selected index range. Channels differ only in the Policy value passed to
// Synthesize.
package auxchan

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/agleyzer/fakeframes/pkg/series"
)

// Fixed sample spacings of the bitmask channels.
const (
	StateVectorDeltaT = 1.0 / 16
	DQVectorDeltaT    = 1.0 / 64
)

// Bad-epoch shift of the iDQ channel and the offset of its baseline.
const (
	IDQBadDelta      = 6.0
	IDQBaselineShift = -1.0
)

// Policy describes how one channel is built.
type Policy[T series.Sample] struct {
	// DeltaT is the channel sample spacing. Zero uses the reference spacing
	// and length.
	DeltaT float64

	// Baseline fills a freshly allocated channel.
	Baseline func(data []T)

	// Overrides select the index ranges Apply is run on, in order.
	Overrides []series.Selector

	// Apply modifies the samples of one selected range.
	Apply func(data []T)
}

// Fill sets every sample to v.
func Fill[T series.Sample](v T) func([]T) {
	return func(data []T) {
		for i := range data {
			data[i] = v
		}
	}
}

// Overwrite replaces every selected sample with v. Overlapping ranges are
// idempotent.
func Overwrite[T series.Sample](v T) func([]T) {
	return Fill(v)
}

// Add adds d to every selected sample. Overlapping ranges accumulate.
func Add(d float64) func([]float64) {
	return func(data []float64) {
		floats.AddConst(d, data)
	}
}

// StateVectorPolicy keeps good everywhere except the off intervals, which
// read 0.
func StateVectorPolicy(good uint32, off []series.Interval) Policy[uint32] {
	sel := make([]series.Selector, len(off))
	for i, iv := range off {
		sel[i] = iv
	}
	return Policy[uint32]{
		DeltaT:    StateVectorDeltaT,
		Baseline:  Fill(good),
		Overrides: sel,
		Apply:     Overwrite[uint32](0),
	}
}

// DQBadValue returns the value that flags bad data for a DQ vector whose
// good value is good. A good value of 0 marks a vector where set bits flag
// problems, so bad is 1; otherwise bad is 0.
func DQBadValue(good uint32) uint32 {
	if good == 0 {
		return 1
	}
	return 0
}

// DQVectorPolicy keeps good everywhere except within the bad epochs.
func DQVectorPolicy(good uint32, bad []series.Epoch) Policy[uint32] {
	return Policy[uint32]{
		DeltaT:    DQVectorDeltaT,
		Baseline:  Fill(good),
		Overrides: epochSelectors(bad),
		Apply:     Overwrite(DQBadValue(good)),
	}
}

// IDQPolicy draws a standard normal baseline shifted by -1 from a PCG source
// seeded with seed, and raises every bad epoch by 6. The channel follows the
// reference spacing and length.
func IDQPolicy(seed uint64, bad []series.Epoch) Policy[float64] {
	return Policy[float64]{
		Baseline:  NormalNoise(seed, IDQBaselineShift, 1),
		Overrides: epochSelectors(bad),
		Apply:     Add(IDQBadDelta),
	}
}

// NormalNoise fills data with independent normal draws. The same seed
// always yields the same sequence.
func NormalNoise(seed uint64, mu, sigma float64) func([]float64) {
	return func(data []float64) {
		dist := distuv.Normal{
			Mu:    mu,
			Sigma: sigma,
			Src:   rand.NewPCG(seed, seed),
		}
		for i := range data {
			data[i] = dist.Rand()
		}
	}
}

func epochSelectors(epochs []series.Epoch) []series.Selector {
	sel := make([]series.Selector, len(epochs))
	for i, e := range epochs {
		sel[i] = e
	}
	return sel
}
