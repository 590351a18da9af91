// Package series defines uniformly sampled time series and the mapping
// between absolute times and sample indices.
package series

import (
	"fmt"
	"math"
)

// Sample is the set of element types a Series can hold.
type Sample interface {
	~float32 | ~float64 | ~uint32 | ~int32
}

// DType identifies the native sample type of a series.
type DType uint8

const (
	Float64 DType = iota + 1
	Float32
	Uint32
	Int32
)

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Size returns the number of bytes of one sample, or 0 for an unknown type.
func (d DType) Size() int {
	switch d {
	case Float64:
		return 8
	case Float32, Uint32, Int32:
		return 4
	default:
		return 0
	}
}

// TimeSeries is the type-erased view of a Series used by channel sets and
// codecs.
type TimeSeries interface {
	Len() int
	DeltaT() float64
	StartTime() float64
	Duration() float64
	EndTime() float64
	DType() DType
	// TimeSlice returns the samples whose time lies in [t0, t1).
	TimeSlice(t0, t1 float64) (TimeSeries, error)
	// Float64s returns a copy of the samples converted to float64.
	Float64s() []float64
}

// Series is a uniformly sampled sequence. Sample i occurs at
// Start + i*Step.
type Series[T Sample] struct {
	// Data holds the samples. Its length is fixed once the series is built.
	Data []T

	// Step is the sample spacing in seconds (> 0).
	Step float64

	// Start is the absolute time of sample 0 in GPS seconds.
	Start float64
}

// New creates a series of n zero samples.
func New[T Sample](n int, start, step float64) (*Series[T], error) {
	if n < 0 {
		return nil, fmt.Errorf("series length must be non-negative, got %d", n)
	}
	if !(step > 0) {
		return nil, fmt.Errorf("sample spacing must be positive, got %g", step)
	}
	return &Series[T]{Data: make([]T, n), Step: step, Start: start}, nil
}

// FromSlice wraps data without copying it.
func FromSlice[T Sample](data []T, start, step float64) (*Series[T], error) {
	if !(step > 0) {
		return nil, fmt.Errorf("sample spacing must be positive, got %g", step)
	}
	return &Series[T]{Data: data, Step: step, Start: start}, nil
}

// SampleTime returns the time of sample i. Every caller that needs a sample
// time goes through this function so boundary decisions agree.
func SampleTime(start, step float64, i int) float64 {
	return start + float64(i)*step
}

// SampleTime returns the time of sample i.
func (s *Series[T]) SampleTime(i int) float64 { return SampleTime(s.Start, s.Step, i) }

func (s *Series[T]) Len() int           { return len(s.Data) }
func (s *Series[T]) DeltaT() float64    { return s.Step }
func (s *Series[T]) StartTime() float64 { return s.Start }
func (s *Series[T]) Duration() float64  { return float64(len(s.Data)) * s.Step }
func (s *Series[T]) EndTime() float64   { return s.Start + s.Duration() }

// DType reports the native sample type.
func (s *Series[T]) DType() DType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case uint32:
		return Uint32
	case int32:
		return Int32
	default:
		return Float64
	}
}

// Indices maps sel onto this series.
func (s *Series[T]) Indices(sel Selector) (first, last int, ok bool) {
	return sel.Indices(s.Start, s.Step, len(s.Data))
}

// Slice returns the samples whose time lies in [t0, t1). The result shares
// storage with s.
func (s *Series[T]) Slice(t0, t1 float64) (*Series[T], error) {
	if t1 < t0 {
		return nil, fmt.Errorf("invalid time slice [%g, %g)", t0, t1)
	}
	first, last, ok := s.Indices(Interval{Start: t0, End: t1})
	if !ok {
		return &Series[T]{Data: s.Data[:0:0], Step: s.Step, Start: t0}, nil
	}
	return &Series[T]{
		Data:  s.Data[first : last+1 : last+1],
		Step:  s.Step,
		Start: s.SampleTime(first),
	}, nil
}

// TimeSlice implements TimeSeries.
func (s *Series[T]) TimeSlice(t0, t1 float64) (TimeSeries, error) {
	return s.Slice(t0, t1)
}

// Float64s implements TimeSeries.
func (s *Series[T]) Float64s() []float64 {
	out := make([]float64, len(s.Data))
	for i, v := range s.Data {
		out[i] = float64(v)
	}
	return out
}

// Clone returns a deep copy.
func (s *Series[T]) Clone() *Series[T] {
	data := make([]T, len(s.Data))
	copy(data, s.Data)
	return &Series[T]{Data: data, Step: s.Step, Start: s.Start}
}

// SamplesIn returns floor(duration/step), treating a quotient within the
// sample tolerance of an integer as that integer.
func SamplesIn(duration, step float64) int {
	q := duration / step
	r := math.Round(q)
	if math.Abs(q-r) < sampleTolerance {
		return int(r)
	}
	return int(math.Floor(q))
}
