package strain

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/agleyzer/fakeframes/internal/framefile"
	"github.com/agleyzer/fakeframes/pkg/series"
)

// FakeSource simulates strain as white Gaussian noise.
type FakeSource struct {
	Start      int64
	End        int64
	SampleRate int
	Seed       uint64
	Amplitude  float64
}

// Load implements Source.
func (f *FakeSource) Load(ctx context.Context) (*series.Series[float64], error) {
	if f.End <= f.Start || f.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid fake strain span [%d, %d) at %d Hz", f.Start, f.End, f.SampleRate)
	}
	n := int(f.End-f.Start) * f.SampleRate
	s, err := series.New[float64](n, float64(f.Start), 1/float64(f.SampleRate))
	if err != nil {
		return nil, err
	}

	dist := distuv.Normal{Mu: 0, Sigma: f.Amplitude, Src: rand.NewPCG(f.Seed, ^f.Seed)}
	for i := range s.Data {
		if i%(1<<16) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s.Data[i] = dist.Rand()
	}
	return s, nil
}

// FileSource reads strain from a frame or HDF5 file written by this tool or
// any producer using the same layout.
type FileSource struct {
	Path       string
	Channel    string
	Start      int64
	End        int64
	SampleRate int
}

// Load implements Source.
func (f *FileSource) Load(ctx context.Context) (*series.Series[float64], error) {
	set, err := framefile.Read(f.Path, f.Channel)
	if err != nil {
		return nil, err
	}
	ts, _ := set.Get(f.Channel)

	cropped, err := ts.TimeSlice(float64(f.Start), float64(f.End))
	if err != nil {
		return nil, err
	}
	want := float64(f.End - f.Start)
	if math.Abs(cropped.Duration()-want) > cropped.DeltaT()/2 {
		return nil, fmt.Errorf("%s channel %s covers %gs of the requested %gs",
			f.Path, f.Channel, cropped.Duration(), want)
	}

	s, err := series.FromSlice(cropped.Float64s(), cropped.StartTime(), cropped.DeltaT())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decimate(s, f.SampleRate)
}

// Decimate resamples s to rate by averaging consecutive blocks of samples.
// The input rate must be an integer multiple of rate.
func Decimate(s *series.Series[float64], rate int) (*series.Series[float64], error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	inRate := 1 / s.Step
	factor := int(math.Round(inRate / float64(rate)))
	if factor < 1 || math.Abs(inRate-float64(factor*rate)) > 1e-6*inRate {
		return nil, fmt.Errorf("cannot resample %g Hz to %d Hz: not an integer factor", inRate, rate)
	}
	if factor == 1 {
		return s, nil
	}

	n := s.Len() / factor
	out, err := series.New[float64](n, s.Start, s.Step*float64(factor))
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		out.Data[i] = floats.Sum(s.Data[i*factor:(i+1)*factor]) / float64(factor)
	}
	return out, nil
}

// Highpass applies a first-order RC highpass with corner frequency fc in
// place.
func Highpass(s *series.Series[float64], fc float64) {
	if len(s.Data) == 0 || fc <= 0 {
		return
	}
	rc := 1 / (2 * math.Pi * fc)
	alpha := rc / (rc + s.Step)

	prevIn, prevOut := s.Data[0], s.Data[0]
	for i := 1; i < len(s.Data); i++ {
		x := s.Data[i]
		y := alpha * (prevOut + x - prevIn)
		s.Data[i] = y
		prevIn, prevOut = x, y
	}
}
