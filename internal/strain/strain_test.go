package strain

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/agleyzer/fakeframes/internal/config"
	"github.com/agleyzer/fakeframes/internal/framefile"
	"github.com/agleyzer/fakeframes/pkg/series"
)

func TestFakeSource_Reproducible(t *testing.T) {
	src := &FakeSource{Start: 1000, End: 1004, SampleRate: 256, Seed: 5, Amplitude: 1e-21}
	a, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, _ := src.Load(context.Background())

	if a.Len() != 1024 || a.Start != 1000 || a.Step != 1.0/256 {
		t.Errorf("shape = (%d, %g, %g), want (1024, 1000, 1/256)", a.Len(), a.Start, a.Step)
	}
	if !floats.Equal(a.Data, b.Data) {
		t.Error("Expected identical strain for the same seed")
	}
	if max := floats.Max(a.Data); max > 1e-20 || max <= 0 {
		t.Errorf("max sample = %g, want of order 1e-21", max)
	}
}

func TestCondition_ScalesAndGates(t *testing.T) {
	dir := t.TempDir()
	gating := filepath.Join(dir, "gates.txt")
	os.WriteFile(gating, []byte("# time window pad\n1002 0.25 0.25\n\n1003.5 0.1 0\n"), 0o644)

	src := &FakeSource{Start: 1000, End: 1005, SampleRate: 128, Seed: 1, Amplitude: 1e-21}
	raw, _ := src.Load(context.Background())

	s, err := Condition(context.Background(), src, Options{ChannelName: "H1:STRAIN", GatingFile: gating}, hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Channel != "H1:STRAIN" {
		t.Errorf("Channel = %q, want H1:STRAIN", s.Channel)
	}
	if s.Gates.Len() != 2 {
		t.Fatalf("gates = %d, want 2", s.Gates.Len())
	}

	for i, v := range s.Series.Data {
		tm := s.Series.SampleTime(i)
		switch {
		case math.Abs(tm-1002) < 0.25, math.Abs(tm-1003.5) < 0.1:
			if v != 0 {
				t.Fatalf("sample at t=%g = %g, want 0", tm, v)
			}
		case math.Abs(tm-1002) >= 0.5 && math.Abs(tm-1003.5) >= 0.1:
			want := raw.Data[i] * DynRangeFactor
			if v != want {
				t.Fatalf("sample at t=%g = %g, want %g", tm, v, want)
			}
		}
	}
}

func TestGateLog_Write(t *testing.T) {
	log := NewGateLog()
	log.Add("H1", Gate{Time: 1126259462.4, Window: 0.5, Pad: 0.25})
	log.Add("L1", Gate{Time: 1126259470, Window: 1, Pad: 0.5})
	log.Add("H1", Gate{Time: 1126259480.125, Window: 0.1, Pad: 0})

	path := filepath.Join(t.TempDir(), "gates.txt")
	if err := WriteGateLog(path, log); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "1126259462.4000 0.50 0.25\n" +
		"1126259480.1250 0.10 0.00\n" +
		"1126259470.0000 1.00 0.50\n"
	if string(got) != want {
		t.Errorf("gate log =\n%s\nwant\n%s", got, want)
	}
}

func TestReadGatingFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"fields.txt":   "1000 1\n",
		"number.txt":   "1000 x 1\n",
		"negative.txt": "1000 -1 1\n",
	} {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(content), 0o644)
		if _, err := ReadGatingFile(path); err == nil {
			t.Errorf("%s: Expected error, got nil", name)
		}
	}
}

func TestNormalize(t *testing.T) {
	s, _ := series.New[float64](100, 0, 1.0/64)
	for i := range s.Data {
		s.Data[i] = float64(i-50) * 1e-22 * DynRangeFactor
	}

	tests := []struct {
		name         string
		precision    config.Precision
		keepDynRange bool
		wantType     series.DType
		wantScale    float64
	}{
		{"double reverted", config.Double, false, series.Float64, 1},
		{"single reverted", config.Single, false, series.Float32, 1},
		{"double kept", config.Double, true, series.Float64, DynRangeFactor},
		{"single kept", config.Single, true, series.Float32, DynRangeFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(s, tt.precision, tt.keepDynRange)
			if out.DType() != tt.wantType {
				t.Errorf("DType = %v, want %v", out.DType(), tt.wantType)
			}
			got := out.Float64s()
			for i := range got {
				want := float64(i-50) * 1e-22 * tt.wantScale
				if !scalar.EqualWithinAbsOrRel(got[i], want, 0, 1e-6) {
					t.Fatalf("sample %d = %g, want %g", i, got[i], want)
				}
			}
		})
	}
	if s.Data[51] != 1e-22*DynRangeFactor {
		t.Error("Normalize modified its input")
	}
}

func TestDecimate(t *testing.T) {
	s, _ := series.New[float64](16, 10, 0.25)
	for i := range s.Data {
		s.Data[i] = float64(i)
	}
	out, err := Decimate(s, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Len() != 8 || out.Step != 0.5 || out.Start != 10 {
		t.Fatalf("shape = (%d, %g, %g), want (8, 0.5, 10)", out.Len(), out.Step, out.Start)
	}
	if out.Data[0] != 0.5 || out.Data[7] != 14.5 {
		t.Errorf("Data = %v, want pairwise means", out.Data)
	}

	if _, err := Decimate(s, 3); err == nil {
		t.Error("Expected error for non-integer factor, got nil")
	}
	same, err := Decimate(s, 4)
	if err != nil || same != s {
		t.Errorf("Expected rate-preserving decimation to return the input, got %v", err)
	}
}

func TestHighpass_RemovesDC(t *testing.T) {
	s, _ := series.New[float64](4096, 0, 1.0/256)
	for i := range s.Data {
		s.Data[i] = 3
	}
	Highpass(s, 10)
	if tail := s.Data[len(s.Data)-1]; math.Abs(tail) > 1e-9 {
		t.Errorf("DC residual = %g, want ~0", tail)
	}
}

func TestFileSource(t *testing.T) {
	src, _ := series.New[float64](4096*8, 100, 1.0/4096)
	for i := range src.Data {
		src.Data[i] = float64(i % 8)
	}
	path := filepath.Join(t.TempDir(), "input.gwf")
	if err := framefile.Write(path, []string{"H1:RAW"}, []series.TimeSeries{src}, framefile.Options{}); err != nil {
		t.Fatal(err)
	}

	fs := &FileSource{Path: path, Channel: "H1:RAW", Start: 102, End: 106, SampleRate: 512}
	got, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Len() != 512*4 || got.Start != 102 {
		t.Fatalf("shape = (%d, %g), want (2048, 102)", got.Len(), got.Start)
	}
	for i, v := range got.Data {
		if v != 3.5 {
			t.Fatalf("sample %d = %g, want 3.5", i, v)
		}
	}

	fs.End = 200
	if _, err := fs.Load(context.Background()); err == nil {
		t.Error("Expected error for span outside the input, got nil")
	}
}
