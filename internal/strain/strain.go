// Package strain acquires and conditions the primary strain channel and
// prepares it for output.
package strain

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/agleyzer/fakeframes/internal/config"
	"github.com/agleyzer/fakeframes/pkg/series"
)

// DynRangeFactor is the scale applied to conditioned strain to keep later
// arithmetic away from underflow.
var DynRangeFactor = math.Ldexp(1, 69)

// GatingFileID is the gate log identifier for gates read from a gating file.
const GatingFileID = "file"

// Strain is a conditioned strain channel, scaled by DynRangeFactor.
type Strain struct {
	Channel string
	Series  *series.Series[float64]
	Gates   *GateLog
}

// Source produces raw strain in physical units.
type Source interface {
	Load(ctx context.Context) (*series.Series[float64], error)
}

// Options controls conditioning.
type Options struct {
	ChannelName        string
	LowFrequencyCutoff float64
	GatingFile         string
}

// FromConfig builds the source and conditioning options described by cfg.
func FromConfig(cfg config.Strain) (Source, Options) {
	opts := Options{
		ChannelName:        cfg.ChannelName,
		LowFrequencyCutoff: cfg.LowFrequencyCutoff,
		GatingFile:         cfg.GatingFile,
	}
	if cfg.Fake {
		return &FakeSource{
			Start:      cfg.GPSStart,
			End:        cfg.GPSEnd,
			SampleRate: cfg.SampleRate,
			Seed:       cfg.FakeSeed,
			Amplitude:  cfg.FakeAmplitude,
		}, opts
	}
	return &FileSource{
		Path:       cfg.InputFile,
		Channel:    cfg.ChannelName,
		Start:      cfg.GPSStart,
		End:        cfg.GPSEnd,
		SampleRate: cfg.SampleRate,
	}, opts
}

// Condition loads strain from src, highpasses and gates it, and applies the
// dynamic-range factor.
func Condition(ctx context.Context, src Source, opts Options, logger hclog.Logger) (*Strain, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load strain: %w", err)
	}
	logger.Debug("loaded strain",
		"channel", opts.ChannelName,
		"start", raw.Start,
		"duration", raw.Duration(),
		"sample_rate", 1/raw.Step,
	)

	if opts.LowFrequencyCutoff > 0 {
		Highpass(raw, opts.LowFrequencyCutoff)
		logger.Debug("applied highpass", "cutoff", opts.LowFrequencyCutoff)
	}

	gates := NewGateLog()
	if opts.GatingFile != "" {
		list, err := ReadGatingFile(opts.GatingFile)
		if err != nil {
			return nil, err
		}
		for _, g := range list {
			ApplyGate(raw, g)
			gates.Add(GatingFileID, g)
		}
		logger.Info("applied gates", "file", opts.GatingFile, "gates", len(list))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	series.Scale(raw, DynRangeFactor)
	return &Strain{Channel: opts.ChannelName, Series: raw, Gates: gates}, nil
}

// Normalize prepares conditioned strain for output: the dynamic-range factor
// is removed unless keepDynRange is set, then the samples are cast to the
// requested precision. s is not modified.
func Normalize(s *series.Series[float64], precision config.Precision, keepDynRange bool) series.TimeSeries {
	out := s.Clone()
	if !keepDynRange {
		series.Scale(out, 1/DynRangeFactor)
	}
	if precision == config.Single {
		return series.ToFloat32(out)
	}
	return out
}
