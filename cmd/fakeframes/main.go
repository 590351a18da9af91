// The fakeframes command writes synthetic gravitational-wave frame files: a
// strain channel together with optional state vector, data-quality vector and
// iDQ channels carrying bad intervals at chosen times.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/agleyzer/fakeframes/internal/auxchan"
	"github.com/agleyzer/fakeframes/internal/config"
	"github.com/agleyzer/fakeframes/internal/framefile"
	"github.com/agleyzer/fakeframes/internal/manifest"
	"github.com/agleyzer/fakeframes/internal/output"
	"github.com/agleyzer/fakeframes/internal/quicklook"
	"github.com/agleyzer/fakeframes/internal/strain"
	"github.com/agleyzer/fakeframes/pkg/segment"
	"github.com/agleyzer/fakeframes/pkg/series"
)

const (
	version = "1.0.0"
)

// cliOptions holds the flags that are not part of the run configuration.
type cliOptions struct {
	verbose     bool
	showVersion bool
}

func main() {
	cfg, opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.showVersion {
		fmt.Printf("FakeFrames v%s\n", version)
		os.Exit(0)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	strainLogger := strain.NewHCLogger(os.Stdout, logLevel)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("FakeFrames starting", "version", version)

	// Create context for cancellation between stages
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger, strainLogger); err != nil {
		logger.Error("application error", "error", err)
		os.Exit(1)
	}

	logger.Info("FakeFrames finished")
}

// parseFlags builds the run configuration from the command line. Optional
// numeric parameters that have no sensible zero value are only set when the
// flag is given.
func parseFlags(args []string, stderr io.Writer) (*config.Config, cliOptions, error) {
	fs := flag.NewFlagSet("fakeframes", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfg  config.Config
		opts cliOptions

		precision     = fs.String("output-precision", string(config.Double), "Precision of the output strain: single or double")
		frameDuration = fs.Int64("frame-duration", 0, "Split the output into frames of this many seconds; --output-file must then contain {start} and {duration}")

		stateVector = fs.String("state-vector", "", "Name of the state vector channel to add")
		stateGood   = fs.Uint("state-vector-good", 0, "State vector value outside the off segments")
		stateOff    config.IntervalList

		dqVector = fs.String("dq-vector", "", "Name of the data-quality vector channel to add")
		dqGood   = fs.Uint("dq-vector-good", 0, "DQ vector value outside the bad epochs")
		dqTimes  config.FloatList
		dqPad    = fs.Float64("dq-bad-pad", 0, "Half-width in seconds of each DQ bad epoch")

		idqChannel = fs.String("idq-channel", "", "Name of the iDQ channel to add")
		idqSeed    = fs.Uint64("random-seed", 0, "Seed of the iDQ noise generator")
		idqTimes   config.FloatList
		idqPad     = fs.Float64("idq-bad-pad", 0, "Half-width in seconds of each iDQ bad epoch")
	)

	fs.StringVar(&cfg.OutputFile, "output-file", "", "Output file (.gwf, .hdf or .h5)")
	fs.StringVar(&cfg.OutputGatesFile, "output-gates-file", "", "Write the applied gates to this file")
	fs.BoolVar(&cfg.KeepDynRange, "dyn-range-factor", false, "Keep the dynamic-range factor applied to the output strain")
	fs.StringVar(&cfg.OutputManifest, "output-manifest", "", "Write an m3u8 manifest of the output files")
	fs.StringVar(&cfg.QuicklookDir, "quicklook-dir", "", "Write a PNG plot of every output channel into this directory")

	fs.StringVar(&cfg.Strain.ChannelName, "channel-name", "", "Name of the strain channel")
	fs.Int64Var(&cfg.Strain.GPSStart, "gps-start-time", 0, "GPS start time in seconds")
	fs.Int64Var(&cfg.Strain.GPSEnd, "gps-end-time", 0, "GPS end time in seconds")
	fs.IntVar(&cfg.Strain.SampleRate, "sample-rate", config.DefaultSampleRate, "Strain sample rate in Hz")
	fs.Float64Var(&cfg.Strain.LowFrequencyCutoff, "low-frequency-cutoff", 0, "Highpass corner frequency in Hz (0 disables)")
	fs.BoolVar(&cfg.Strain.Fake, "fake-strain", false, "Simulate Gaussian strain instead of reading --input-file")
	fs.Uint64Var(&cfg.Strain.FakeSeed, "fake-strain-seed", 0, "Seed of the simulated strain")
	fs.Float64Var(&cfg.Strain.FakeAmplitude, "fake-strain-amplitude", config.DefaultFakeAmplitude, "Standard deviation of the simulated strain")
	fs.StringVar(&cfg.Strain.InputFile, "input-file", "", "Frame or HDF5 file to read strain from")
	fs.StringVar(&cfg.Strain.GatingFile, "gating-file", "", "File of 'time window pad' gates to apply to the strain")

	fs.Var(&stateOff, "state-off-segments", "START,STOP segments where the state vector is off (space or ; separated, repeatable)")
	fs.Var(&dqTimes, "dq-bad-times", "Centers of DQ bad epochs (comma or space separated, repeatable)")
	fs.Var(&idqTimes, "idq-bad-times", "Centers of iDQ bad epochs (comma or space separated, repeatable)")

	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "FakeFrames - synthetic frame file generator v%s\n\n", version)
		fmt.Fprintf(stderr, "Usage: fakeframes [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  fakeframes --fake-strain --channel-name H1:STRAIN --gps-start-time 1000 --gps-end-time 1100 --output-file out.gwf\n")
		fmt.Fprintf(stderr, "  fakeframes --fake-strain --channel-name H1:STRAIN --gps-start-time 1000 --gps-end-time 1100 \\\n")
		fmt.Fprintf(stderr, "    --frame-duration 30 --output-file 'H-H1-{start}-{duration}.gwf' \\\n")
		fmt.Fprintf(stderr, "    --dq-vector H1:DQ --dq-vector-good 1 --dq-bad-times 1050 --dq-bad-pad 2\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if fs.NArg() > 0 {
		return nil, opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	given := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })

	cfg.OutputPrecision = config.Precision(*precision)
	if given["frame-duration"] {
		cfg.FrameDuration = frameDuration
	}

	var errs []error
	requireChannel := func(channel, flagName string, deps ...string) {
		if channel != "" {
			return
		}
		for _, d := range deps {
			if given[d] {
				errs = append(errs, fmt.Errorf("--%s requires --%s", d, flagName))
			}
		}
	}
	requireChannel(*stateVector, "state-vector", "state-vector-good", "state-off-segments")
	requireChannel(*dqVector, "dq-vector", "dq-vector-good", "dq-bad-times", "dq-bad-pad")
	requireChannel(*idqChannel, "idq-channel", "random-seed", "idq-bad-times", "idq-bad-pad")
	for _, g := range []struct {
		name  string
		value uint
	}{{"state-vector-good", *stateGood}, {"dq-vector-good", *dqGood}} {
		if g.value > math.MaxUint32 {
			errs = append(errs, fmt.Errorf("--%s %d does not fit in 32 bits", g.name, g.value))
		}
	}
	if len(errs) > 0 {
		return nil, opts, errors.Join(errs...)
	}

	if *stateVector != "" {
		sv := &config.StateVector{Channel: *stateVector, OffSegments: stateOff}
		if given["state-vector-good"] {
			good := uint32(*stateGood)
			sv.Good = &good
		}
		cfg.StateVector = sv
	}
	if *dqVector != "" {
		dq := &config.DQVector{Channel: *dqVector, BadTimes: dqTimes}
		if given["dq-vector-good"] {
			good := uint32(*dqGood)
			dq.Good = &good
		}
		if given["dq-bad-pad"] {
			dq.BadPad = dqPad
		}
		cfg.DQVector = dq
	}
	if *idqChannel != "" {
		idq := &config.IDQ{Channel: *idqChannel, BadTimes: idqTimes}
		if given["random-seed"] {
			idq.Seed = idqSeed
		}
		if given["idq-bad-pad"] {
			idq.BadPad = idqPad
		}
		cfg.IDQ = idq
	}

	return &cfg, opts, nil
}

// run produces every output of a validated configuration.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, strainLogger hclog.Logger) error {
	runID := uuid.New()
	logger = logger.With("run_id", runID.String())

	// Acquire and condition the strain
	src, opts := strain.FromConfig(cfg.Strain)
	logger.Info("conditioning strain",
		"channel", cfg.Strain.ChannelName,
		"start", cfg.Strain.GPSStart,
		"end", cfg.Strain.GPSEnd,
		"sampleRate", cfg.Strain.SampleRate,
		"fake", cfg.Strain.Fake,
	)
	st, err := strain.Condition(ctx, src, opts, strainLogger)
	if err != nil {
		return fmt.Errorf("failed to condition strain: %w", err)
	}

	if cfg.OutputGatesFile != "" {
		if err := strain.WriteGateLog(cfg.OutputGatesFile, st.Gates); err != nil {
			return fmt.Errorf("failed to write gate log: %w", err)
		}
		logger.Info("wrote gate log", "path", cfg.OutputGatesFile, "gates", st.Gates.Len())
	}

	out := strain.Normalize(st.Series, cfg.OutputPrecision, cfg.KeepDynRange)
	set := series.NewSet()
	if err := set.Add(st.Channel, out); err != nil {
		return err
	}

	if err := auxchan.AddConfigured(set, auxchan.ReferenceOf(out), cfg, logger); err != nil {
		return fmt.Errorf("failed to synthesize auxiliary channels: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Write the output
	w := output.New(cfg.OutputFile, framefile.Options{RunID: runID}, logger)
	span := segment.Segment{Start: cfg.Strain.GPSStart, Duration: cfg.Strain.GPSEnd - cfg.Strain.GPSStart}

	var written []output.Written
	if cfg.Segmented() {
		segments, err := segment.Split(span.Start, span.End(), *cfg.FrameDuration)
		if err != nil {
			return err
		}
		logger.Info("writing frames",
			"frames", len(segments),
			"frameDuration", *cfg.FrameDuration,
			"totalDuration", segment.TotalDuration(segments),
		)
		written, err = w.WriteSegments(set, segments)
		if err != nil {
			return fmt.Errorf("failed to write frames (%d written): %w", len(written), err)
		}
	} else {
		written, err = w.WriteAll(set, span)
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if cfg.OutputManifest != "" {
		if err := manifest.Write(cfg.OutputManifest, written); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		logger.Info("wrote manifest", "path", cfg.OutputManifest, "frames", len(written))
	}

	if cfg.QuicklookDir != "" {
		paths, err := quicklook.Write(cfg.QuicklookDir, set, logger)
		if err != nil {
			return fmt.Errorf("failed to write quicklook plots: %w", err)
		}
		logger.Info("wrote quicklook plots", "dir", cfg.QuicklookDir, "plots", len(paths))
	}

	logger.Info("run complete", "files", len(written), "channels", set.Names())
	return nil
}
