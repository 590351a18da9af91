// Package config holds the run configuration of fakeframes and validates it
// before any data is produced.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/agleyzer/fakeframes/internal/framefile"
	"github.com/agleyzer/fakeframes/pkg/segment"
	"github.com/agleyzer/fakeframes/pkg/series"
)

// ErrInvalid wraps every configuration error.
var ErrInvalid = errors.New("invalid configuration")

// Precision is the numeric precision of the output strain.
type Precision string

const (
	Single Precision = "single"
	Double Precision = "double"
)

// Default values applied by Validate.
const (
	DefaultSampleRate    = 4096
	DefaultFakeAmplitude = 1e-21
)

// Config holds the configuration for one run.
type Config struct {
	// OutputFile is the destination. With FrameDuration set it is a template
	// containing {start} and {duration}.
	OutputFile string
	// OutputPrecision is single or double (default double).
	OutputPrecision Precision
	// OutputGatesFile receives the gate log when set.
	OutputGatesFile string
	// KeepDynRange leaves the dynamic-range factor applied to the output.
	KeepDynRange bool
	// FrameDuration splits the output into frames of this many seconds.
	// Nil writes a single file.
	FrameDuration *int64
	// OutputManifest receives an m3u8 listing of the written files when set.
	OutputManifest string
	// QuicklookDir receives one PNG per channel when set.
	QuicklookDir string

	Strain      Strain
	StateVector *StateVector
	DQVector    *DQVector
	IDQ         *IDQ
}

// Strain configures acquisition and conditioning of the primary channel.
type Strain struct {
	ChannelName string
	GPSStart    int64
	GPSEnd      int64
	SampleRate  int
	// LowFrequencyCutoff is the highpass corner in Hz; zero disables it.
	LowFrequencyCutoff float64

	// Fake selects simulated Gaussian noise instead of InputFile.
	Fake          bool
	FakeSeed      uint64
	FakeAmplitude float64

	InputFile  string
	GatingFile string
}

// StateVector configures the state vector channel.
type StateVector struct {
	Channel     string
	Good        *uint32
	OffSegments []series.Interval
}

// DQVector configures the data-quality vector channel.
type DQVector struct {
	Channel  string
	Good     *uint32
	BadTimes []float64
	BadPad   *float64
}

// IDQ configures the noise-monitor channel.
type IDQ struct {
	Channel  string
	Seed     *uint64
	BadTimes []float64
	BadPad   *float64
}

// Validate checks the whole configuration and fills defaults. All problems
// are reported together; the returned error wraps ErrInvalid.
func (c *Config) Validate() error {
	if c.OutputPrecision == "" {
		c.OutputPrecision = Double
	}
	if c.Strain.SampleRate == 0 {
		c.Strain.SampleRate = DefaultSampleRate
	}
	if c.Strain.Fake && c.Strain.FakeAmplitude == 0 {
		c.Strain.FakeAmplitude = DefaultFakeAmplitude
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.OutputFile == "" {
		add("output-file is required")
	} else if err := framefile.CheckExtension(c.OutputFile); err != nil {
		errs = append(errs, err)
	}
	if c.OutputPrecision != Single && c.OutputPrecision != Double {
		add("output-precision must be %q or %q, got %q", Single, Double, c.OutputPrecision)
	}

	errs = append(errs, c.Strain.validate()...)

	if c.FrameDuration != nil {
		if *c.FrameDuration <= 0 {
			add("frame duration should be positive integer, %d given", *c.FrameDuration)
		} else if c.Strain.GPSEnd > c.Strain.GPSStart {
			segs, err := segment.Split(c.Strain.GPSStart, c.Strain.GPSEnd, *c.FrameDuration)
			if err != nil {
				errs = append(errs, err)
			} else if _, err := segment.Template(c.OutputFile).Paths(segs); err != nil {
				errs = append(errs, fmt.Errorf("output-file template: %w", err))
			}
		}
	}

	if c.StateVector != nil {
		errs = append(errs, c.StateVector.validate()...)
	}
	if c.DQVector != nil {
		errs = append(errs, c.DQVector.validate()...)
	}
	if c.IDQ != nil {
		errs = append(errs, c.IDQ.validate()...)
	}
	errs = append(errs, c.checkChannelNames()...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (s *Strain) validate() []error {
	var errs []error
	if s.ChannelName == "" {
		errs = append(errs, fmt.Errorf("channel-name is required"))
	}
	if s.GPSEnd <= s.GPSStart {
		errs = append(errs, fmt.Errorf("gps-end-time %d must be after gps-start-time %d", s.GPSEnd, s.GPSStart))
	}
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample-rate must be positive, got %d", s.SampleRate))
	}
	if s.LowFrequencyCutoff < 0 || math.IsNaN(s.LowFrequencyCutoff) {
		errs = append(errs, fmt.Errorf("low-frequency-cutoff must be non-negative, got %g", s.LowFrequencyCutoff))
	} else if s.SampleRate > 0 && s.LowFrequencyCutoff >= float64(s.SampleRate)/2 {
		errs = append(errs, fmt.Errorf("low-frequency-cutoff %g must be below the Nyquist frequency %g",
			s.LowFrequencyCutoff, float64(s.SampleRate)/2))
	}
	switch {
	case s.Fake && s.InputFile != "":
		errs = append(errs, fmt.Errorf("fake-strain and input-file are mutually exclusive"))
	case !s.Fake && s.InputFile == "":
		errs = append(errs, fmt.Errorf("one of fake-strain or input-file is required"))
	case s.InputFile != "":
		if err := framefile.CheckExtension(s.InputFile); err != nil {
			errs = append(errs, fmt.Errorf("input-file: %w", err))
		}
	}
	if s.Fake && !(s.FakeAmplitude > 0) {
		errs = append(errs, fmt.Errorf("fake-strain-amplitude must be positive, got %g", s.FakeAmplitude))
	}
	return errs
}

func (v *StateVector) validate() []error {
	var errs []error
	if v.Good == nil {
		errs = append(errs, fmt.Errorf("state-vector %q requires state-vector-good", v.Channel))
	}
	if len(v.OffSegments) == 0 {
		errs = append(errs, fmt.Errorf("state-vector %q requires state-off-segments", v.Channel))
	}
	for _, iv := range v.OffSegments {
		if err := iv.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("state-off-segments: %w", err))
		}
	}
	return errs
}

func (v *DQVector) validate() []error {
	var errs []error
	if v.Good == nil {
		errs = append(errs, fmt.Errorf("dq-vector %q requires dq-vector-good", v.Channel))
	}
	errs = append(errs, validateEpochs("dq", v.BadTimes, v.BadPad)...)
	return errs
}

func (v *IDQ) validate() []error {
	var errs []error
	if v.Seed == nil {
		errs = append(errs, fmt.Errorf("idq-channel %q requires random-seed", v.Channel))
	}
	errs = append(errs, validateEpochs("idq", v.BadTimes, v.BadPad)...)
	return errs
}

func validateEpochs(prefix string, times []float64, pad *float64) []error {
	var errs []error
	if len(times) == 0 {
		errs = append(errs, fmt.Errorf("%s-bad-times is required", prefix))
	}
	if pad == nil {
		errs = append(errs, fmt.Errorf("%s-bad-pad is required", prefix))
		return errs
	}
	for _, t := range times {
		if err := (series.Epoch{Center: t, Pad: *pad}).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s-bad-times: %w", prefix, err))
		}
	}
	return errs
}

// checkChannelNames rejects auxiliary channels that reuse a name.
func (c *Config) checkChannelNames() []error {
	var errs []error
	seen := map[string]bool{}
	check := func(flagName, name string) {
		if name == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", flagName))
			return
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("%s %q duplicates another channel name", flagName, name))
		}
		seen[name] = true
	}
	if c.Strain.ChannelName != "" {
		seen[c.Strain.ChannelName] = true
	}
	if c.StateVector != nil {
		check("state-vector", c.StateVector.Channel)
	}
	if c.DQVector != nil {
		check("dq-vector", c.DQVector.Channel)
	}
	if c.IDQ != nil {
		check("idq-channel", c.IDQ.Channel)
	}
	return errs
}

// Segmented reports whether the output is split into frames.
func (c *Config) Segmented() bool { return c.FrameDuration != nil }

// Epochs pairs every center time with the shared pad.
func Epochs(times []float64, pad float64) []series.Epoch {
	out := make([]series.Epoch, len(times))
	for i, t := range times {
		out[i] = series.Epoch{Center: t, Pad: pad}
	}
	return out
}
