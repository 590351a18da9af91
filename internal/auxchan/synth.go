package auxchan

import (
	"fmt"

	"github.com/agleyzer/fakeframes/pkg/series"
)

// Reference is the part of the strain an auxiliary channel aligns to.
type Reference struct {
	StartTime float64
	Duration  float64
	DeltaT    float64
	Len       int
}

// ReferenceOf describes ts as a Reference.
func ReferenceOf(ts series.TimeSeries) Reference {
	return Reference{
		StartTime: ts.StartTime(),
		Duration:  ts.Duration(),
		DeltaT:    ts.DeltaT(),
		Len:       ts.Len(),
	}
}

// Synthesize builds a channel aligned to ref according to p.
func Synthesize[T series.Sample](ref Reference, p Policy[T]) (*series.Series[T], error) {
	step, n := p.DeltaT, ref.Len
	if step == 0 {
		step = ref.DeltaT
	} else {
		n = series.SamplesIn(ref.Duration, step)
	}

	s, err := series.New[T](n, ref.StartTime, step)
	if err != nil {
		return nil, fmt.Errorf("allocate channel: %w", err)
	}
	if p.Baseline != nil {
		p.Baseline(s.Data)
	}
	if p.Apply == nil {
		return s, nil
	}
	for _, sel := range p.Overrides {
		first, last, ok := s.Indices(sel)
		if !ok {
			continue
		}
		p.Apply(s.Data[first : last+1])
	}
	return s, nil
}
