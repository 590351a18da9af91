package framefile

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/agleyzer/fakeframes/pkg/series"
)

func createTestSet(t *testing.T) *series.Set {
	t.Helper()

	strain, _ := series.New[float32](4096*2, 1126259462, 1.0/4096)
	for i := range strain.Data {
		strain.Data[i] = float32(i%101) * 1e-3
	}
	state, _ := series.New[uint32](32, 1126259462, 1.0/16)
	for i := range state.Data {
		state.Data[i] = uint32(i % 3)
	}
	idq, _ := series.New[float64](4096*2, 1126259462, 1.0/4096)
	for i := range idq.Data {
		idq.Data[i] = float64(i) - 1
	}

	set := series.NewSet()
	for _, c := range []struct {
		name string
		ts   series.TimeSeries
	}{
		{"H1:FAKE-STRAIN", strain},
		{"H1:FAKE-STATE_VECTOR", state},
		{"H1:FAKE-IDQ", idq},
	} {
		if err := set.Add(c.name, c.ts); err != nil {
			t.Fatal(err)
		}
	}
	return set
}

func assertSetsEqual(t *testing.T, got, want *series.Set) {
	t.Helper()

	if got.Len() != want.Len() {
		t.Fatalf("got %d channels, want %d", got.Len(), want.Len())
	}
	gotNames, wantNames := got.Names(), want.Names()
	for i := range wantNames {
		if gotNames[i] != wantNames[i] {
			t.Errorf("channel %d = %q, want %q", i, gotNames[i], wantNames[i])
		}
	}
	for _, name := range wantNames {
		g, ok := got.Get(name)
		if !ok {
			t.Fatalf("channel %q missing", name)
		}
		w, _ := want.Get(name)
		if g.DType() != w.DType() {
			t.Errorf("%s DType = %v, want %v", name, g.DType(), w.DType())
		}
		if g.StartTime() != w.StartTime() || g.DeltaT() != w.DeltaT() {
			t.Errorf("%s timing = (%g, %g), want (%g, %g)", name, g.StartTime(), g.DeltaT(), w.StartTime(), w.DeltaT())
		}
		gv, wv := g.Float64s(), w.Float64s()
		if len(gv) != len(wv) {
			t.Fatalf("%s Len = %d, want %d", name, len(gv), len(wv))
		}
		for i := range wv {
			if gv[i] != wv[i] {
				t.Fatalf("%s sample %d = %g, want %g", name, i, gv[i], wv[i])
			}
		}
	}
}

func TestNew_Extensions(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"out.gwf", false},
		{"out.hdf", false},
		{"out.h5", false},
		{"dir/H-H1-{start}-{duration}.gwf", false},
		{"out.txt", true},
		{"out", true},
	}
	for _, tt := range tests {
		err := CheckExtension(tt.path)
		if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("CheckExtension(%q) = %v, want ErrUnsupportedFormat", tt.path, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("CheckExtension(%q) = %v, want nil", tt.path, err)
		}
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	set := createTestSet(t)
	path := filepath.Join(t.TempDir(), "H-H1_FAKE-1126259462-2.gwf")
	runID := uuid.New()

	if err := WriteSet(path, set, Options{RunID: runID}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertSetsEqual(t, got, set)

	hdr, err := ReadFrameHeader(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if hdr.RunID != runID {
		t.Errorf("RunID = %s, want %s", hdr.RunID, runID)
	}
	if hdr.GPSStart != 1126259462 || hdr.Duration != 2 {
		t.Errorf("header span = (%g, %g), want (1126259462, 2)", hdr.GPSStart, hdr.Duration)
	}
	if hdr.Channels != 3 {
		t.Errorf("Channels = %d, want 3", hdr.Channels)
	}
}

func TestFrame_ReadSelectedChannels(t *testing.T) {
	set := createTestSet(t)
	path := filepath.Join(t.TempDir(), "frame.gwf")
	if err := WriteSet(path, set, Options{}); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path, "H1:FAKE-IDQ", "H1:FAKE-STRAIN")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	names := got.Names()
	if len(names) != 2 || names[0] != "H1:FAKE-IDQ" || names[1] != "H1:FAKE-STRAIN" {
		t.Errorf("Names = %v, want [H1:FAKE-IDQ H1:FAKE-STRAIN]", names)
	}

	if _, err := Read(path, "H1:MISSING"); err == nil {
		t.Error("Expected error for missing channel, got nil")
	}
}

func TestFrame_DetectsCorruption(t *testing.T) {
	set := createTestSet(t)
	path := filepath.Join(t.TempDir(), "frame.gwf")
	if err := WriteSet(path, set, Options{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 'X'
	badPath := filepath.Join(t.TempDir(), "bad-magic.gwf")
	os.WriteFile(badPath, badMagic, 0o644)
	if _, err := Read(badPath); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt for bad magic, got %v", err)
	}

	truncated := filepath.Join(t.TempDir(), "truncated.gwf")
	os.WriteFile(truncated, data[:len(data)-10], 0o644)
	if _, err := Read(truncated); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt for truncated file, got %v", err)
	}
}

func TestFrame_RejectsOversizedHeader(t *testing.T) {
	set := createTestSet(t)
	path := filepath.Join(t.TempDir(), "frame.gwf")
	if err := WriteSet(path, set, Options{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// First vector header follows the 42 byte file header and the channel name.
	vec := 42 + 2 + len("H1:FAKE-STRAIN")
	samplesAt, payloadAt := vec+18, vec+26
	if got := binary.LittleEndian.Uint64(data[samplesAt:]); got != 4096*2 {
		t.Fatalf("Expected %d samples at offset %d, got %d", 4096*2, samplesAt, got)
	}

	tests := []struct {
		name   string
		offset int
		value  uint64
	}{
		{"huge sample count", samplesAt, math.MaxUint64},
		{"sample count above decompression ratio", samplesAt, 1 << 28},
		{"one extra sample", samplesAt, 4096*2 + 1},
		{"huge payload", payloadAt, math.MaxUint64},
		{"payload past end of file", payloadAt, uint64(len(data)) + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := append([]byte(nil), data...)
			binary.LittleEndian.PutUint64(bad[tt.offset:], tt.value)
			badPath := filepath.Join(t.TempDir(), "bad.gwf")
			if err := os.WriteFile(badPath, bad, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Read(badPath); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Expected ErrCorrupt, got %v", err)
			}
		})
	}

	unknown := append([]byte(nil), data...)
	unknown[vec] = 9
	unknownPath := filepath.Join(t.TempDir(), "unknown-type.gwf")
	os.WriteFile(unknownPath, unknown, 0o644)
	if _, err := Read(unknownPath); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt for unknown sample type, got %v", err)
	}
}

func TestWrite_UnsupportedExtension(t *testing.T) {
	set := createTestSet(t)
	path := filepath.Join(t.TempDir(), "frame.txt")
	err := WriteSet(path, set, Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Expected no file to be created")
	}
}

func TestWrite_MismatchedNames(t *testing.T) {
	set := createTestSet(t)
	path := filepath.Join(t.TempDir(), "frame.gwf")
	if err := Write(path, []string{"H1:ONLY"}, set.Series(), Options{}); err == nil {
		t.Error("Expected error for mismatched names, got nil")
	}
}

func TestHDF5_RoundTrip(t *testing.T) {
	set := createTestSet(t)
	for _, ext := range []string{".hdf", ".h5"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "strain"+ext)
			if err := WriteSet(path, set, Options{}); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			got, err := Read(path)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertSetsEqual(t, got, set)
		})
	}
}
